package arduino

import (
	"strings"

	"go.bug.st/serial/enumerator"
)

// ArduinoMarker is looked for in port descriptions by ArduinoPorts
const ArduinoMarker = "Arduino"

// Candidate is a serial port and its human readable description
type Candidate struct {
	Name        string
	Description string
}

// Lister enumerates the serial ports of the host
type Lister func() ([]Candidate, error)

// ListPorts lists the serial ports of the host.  The description is the USB
// product string when there is one, and the port name otherwise.
func ListPorts() ([]Candidate, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(details))
	for _, d := range details {
		desc := d.Product
		if desc == "" {
			desc = d.Name
		}
		out = append(out, Candidate{Name: d.Name, Description: desc})
	}
	return out, nil
}

// ArduinoPorts returns the names of the candidates whose description contains
// ArduinoMarker, in input order.  The result is empty if there are none.
func ArduinoPorts(cands []Candidate) []string {
	var out []string
	for _, c := range cands {
		if strings.Contains(c.Description, ArduinoMarker) {
			out = append(out, c.Name)
		}
	}
	return out
}
