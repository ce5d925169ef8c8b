package main

import "github.com/vanshika/netpurchase/cmd/netpurchase/commands"

func main() {
	commands.Execute()
}
