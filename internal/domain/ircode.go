package domain

import "fmt"

// Function is a logical remote-control button.
type Function string

const (
	FunctionPower         Function = "power"
	FunctionVolumeUp      Function = "volume_up"
	FunctionVolumeDown    Function = "volume_down"
	FunctionMute          Function = "mute"
	FunctionSource        Function = "source"
	FunctionDirectionUp   Function = "direction_up"
	FunctionDirectionDown Function = "direction_down"
	FunctionEnter         Function = "enter"
)

// Functions lists every button the bridge transmits, in table order.
var Functions = []Function{
	FunctionPower,
	FunctionVolumeUp,
	FunctionVolumeDown,
	FunctionMute,
	FunctionSource,
	FunctionDirectionUp,
	FunctionDirectionDown,
	FunctionEnter,
}

func IsFunction(name string) bool {
	for _, fn := range Functions {
		if string(fn) == name {
			return true
		}
	}
	return false
}

// IRCode is one button press under the television's infrared protocol.
type IRCode struct {
	Function Function
	Value    uint16
}

func (c IRCode) String() string {
	return fmt.Sprintf("%s(0x%04X)", c.Function, c.Value)
}

// CodeTable maps each function to the RC5 code the television understands.
type CodeTable map[Function]uint16

// DefaultCodes is the code set of a Philips RC5 television.
func DefaultCodes() CodeTable {
	return CodeTable{
		FunctionPower:         0x080C,
		FunctionVolumeUp:      0x0810,
		FunctionVolumeDown:    0x0811,
		FunctionMute:          0x080D,
		FunctionSource:        0x0838,
		FunctionDirectionUp:   0x1810,
		FunctionDirectionDown: 0x1811,
		FunctionEnter:         0x1817,
	}
}

func (t CodeTable) Code(fn Function) IRCode {
	return IRCode{Function: fn, Value: t[fn]}
}

// Validate checks that every transmitted function has a code.
func (t CodeTable) Validate() error {
	for _, fn := range Functions {
		if _, ok := t[fn]; !ok {
			return fmt.Errorf("missing IR code for %s", fn)
		}
	}
	return nil
}
