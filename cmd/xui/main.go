// Command xui inspects session state and streams live collections.
package main

func main() {
	Execute()
}
