package main

import "github.com/nfrund/msgtopology/cmd/topology-cli/cmd"

func main() {
	cmd.Execute()
}
