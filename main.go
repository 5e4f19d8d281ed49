package main

import (
	"github.com/luma/ibzmq/cmd"
)

func main() {
	cmd.Execute()
}
