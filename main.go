package main

import "github.com/emberhq/ember/cmd"

func main() {
	cmd.Execute()
}
