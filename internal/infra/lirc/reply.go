package lirc

import (
	"errors"
	"fmt"
	"strconv"
)

// Reply is the packet lircd answers a command with.
type Reply struct {
	// Command is the command line echoed back by lircd.
	Command string
	Success bool
	Data    []string
}

var (
	// ErrUnsuccessfulCommand is returned with a reply when lircd reports ERROR.
	ErrUnsuccessfulCommand = errors.New("lirc: unsuccessful command")

	errNotReply = errors.New("lirc: line outside reply packet")
)

type parseState uint

const (
	stateIdle parseState = iota
	stateCommand
	stateStatus
	stateDataStart
	stateDataLength
	stateData
	stateDataEnd
)

// replyParser assembles reply packets from socket lines. Lines seen outside a
// BEGIN/END packet are button broadcasts and are reported as errNotReply.
type replyParser struct {
	state     parseState
	reply     Reply
	remaining int
}

func (p *replyParser) feed(line string) (done bool, err error) {
	switch p.state {
	case stateIdle:
		if line != "BEGIN" {
			return false, errNotReply
		}
		p.reply = Reply{}
		p.state = stateCommand

	case stateCommand:
		p.reply.Command = line
		p.reply.Success = true
		p.state = stateStatus

	case stateStatus:
		switch line {
		case "SUCCESS":
			p.state = stateDataStart
		case "ERROR":
			p.reply.Success = false
			p.state = stateDataStart
		case "END":
			return p.finish(), nil
		default:
			return false, p.fail("invalid status %q", line)
		}

	case stateDataStart:
		switch line {
		case "DATA":
			p.state = stateDataLength
		case "END":
			return p.finish(), nil
		default:
			return false, p.fail("invalid data start %q", line)
		}

	case stateDataLength:
		n, err := strconv.Atoi(line)
		if err != nil || n < 0 {
			return false, p.fail("invalid data length %q", line)
		}
		p.remaining = n
		p.reply.Data = make([]string, 0, n)
		if n == 0 {
			p.state = stateDataEnd
		} else {
			p.state = stateData
		}

	case stateData:
		p.reply.Data = append(p.reply.Data, line)
		p.remaining--
		if p.remaining == 0 {
			p.state = stateDataEnd
		}

	case stateDataEnd:
		if line != "END" {
			return false, p.fail("invalid data end %q", line)
		}
		return p.finish(), nil
	}

	return false, nil
}

func (p *replyParser) finish() bool {
	p.state = stateIdle
	return true
}

func (p *replyParser) fail(format string, args ...any) error {
	p.state = stateIdle
	return fmt.Errorf("lirc: "+format, args...)
}
