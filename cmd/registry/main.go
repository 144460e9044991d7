// Package main is the entry point for the registry server.
package main

func main() {
	Execute()
}
