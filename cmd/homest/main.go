package main

import "github.com/MeKo-Tech/homest/cmd/homest/cmd"

func main() {
	cmd.Execute()
}
