// Command ctxping drives a connection pool over in-memory channels and
// prints the context every ping carried.
package main

func main() {
	Execute()
}
