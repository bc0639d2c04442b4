package main

import "github.com/strangelove-ventures/connection-relayer/cmd"

func main() {
	cmd.Execute()
}
