package main

import "github.com/ryfenlabs/presale-cli/cmd"

func main() {
	cmd.Execute()
}
