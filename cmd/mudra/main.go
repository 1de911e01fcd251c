// Command mudra watches the camera for hand gestures, facial expressions and
// blink patterns and runs the actions bound to them.
package main

func main() {
	Execute()
}
