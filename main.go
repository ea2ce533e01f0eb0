package main

import "tradescout/cmd"

func main() {
	cmd.Execute()
}
