package main

import "github.com/notargets/hillpp/cmd"

func main() {
	cmd.Execute()
}
