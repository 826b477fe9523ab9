package action

import (
	"github.com/go-vgo/robotgo"
)

// RobotPointer drives the real pointer through robotgo using the primary
// (left) button.
type RobotPointer struct{}

// NewRobotPointer returns the robotgo-backed pointer driver.
func NewRobotPointer() RobotPointer {
	return RobotPointer{}
}

func (RobotPointer) Position() (int, int) {
	return robotgo.Location()
}

func (RobotPointer) MoveTo(x, y int) {
	robotgo.Move(x, y)
}

func (RobotPointer) Click(x, y int) {
	robotgo.Move(x, y)
	robotgo.Click("left", false)
}

func (RobotPointer) DoubleClick(x, y int) {
	robotgo.Move(x, y)
	robotgo.Click("left", true)
}

func (RobotPointer) ButtonDown() {
	robotgo.Toggle("left", "down")
}

func (RobotPointer) ButtonUp() {
	robotgo.Toggle("left", "up")
}
