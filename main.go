package main

import (
	"musicstream/cmd"
)

func main() {
	cmd.Execute()
}
