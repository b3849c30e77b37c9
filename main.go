package main

import "github.com/vouchd/vouchd/cmd"

func main() {
	cmd.Execute()
}
