package actuator

// Role distinguishes what a command slot drives. Behavior is the same for
// every role.
type Role uint8

const (
	// Accelerator commands linear acceleration.
	Accelerator Role = iota
	// Rotator commands angular rate.
	Rotator
)

func (r Role) String() string {
	switch r {
	case Accelerator:
		return "accelerator"
	case Rotator:
		return "rotator"
	default:
		return "unknown"
	}
}

// Actuator is a settable scalar command slot owned by a robot.
type Actuator struct {
	role Role
	cmd  float64
}

func New(role Role) *Actuator { return &Actuator{role: role} }

func NewAccelerator() *Actuator { return New(Accelerator) }
func NewRotator() *Actuator     { return New(Rotator) }

func (a *Actuator) Role() Role       { return a.role }
func (a *Actuator) Cmd() float64     { return a.cmd }
func (a *Actuator) SetCmd(v float64) { a.cmd = v }
