package main

import "github.com/edgeflare/feedview/cmd/feedview"

func main() {
	feedview.Main()
}
