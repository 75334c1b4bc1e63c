package lirc

import "strconv"

// Command describes a command that can be sent to lircd.
type Command interface {
	// EncodeCommand encodes the command and arguments as a slice of strings.
	EncodeCommand() []string
}

// SendOnce tells lircd to transmit the IR signal of a button once, plus
// Repeats extra repetitions when non-zero.
type SendOnce struct {
	Remote  string
	Button  string
	Repeats uint
}

// EncodeCommand implements the [Command] interface.
func (s SendOnce) EncodeCommand() []string {
	if s.Repeats == 0 {
		return []string{"SEND_ONCE", s.Remote, s.Button}
	}
	return []string{"SEND_ONCE", s.Remote, s.Button, strconv.Itoa(int(s.Repeats))}
}

// List asks for the defined remotes, or the buttons of Remote when set.
type List struct {
	Remote string
}

// EncodeCommand implements the [Command] interface.
func (l List) EncodeCommand() []string {
	if l.Remote == "" {
		return []string{"LIST"}
	}
	return []string{"LIST", l.Remote}
}

// Version tells lircd to send a version packet response.
type Version struct{}

// EncodeCommand implements the [Command] interface.
func (v Version) EncodeCommand() []string {
	return []string{"VERSION"}
}
