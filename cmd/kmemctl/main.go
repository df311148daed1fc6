// Command kmemctl boots the simulated kernel memory core and inspects it.
package main

func main() {
	execute()
}
