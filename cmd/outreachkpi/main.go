package main

import "github.com/dbsmedya/outreachkpi/cmd/outreachkpi/cmd"

func main() {
	cmd.Execute()
}
