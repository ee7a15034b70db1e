package main

import "github.com/sw33tLie/valuestream/cmd"

func main() {
	cmd.Execute()
}
