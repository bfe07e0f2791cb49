package main

import "sigidx/cmd"

func main() {
	cmd.Execute()
}
