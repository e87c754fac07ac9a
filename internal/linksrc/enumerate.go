package linksrc

import "github.com/jochenvg/go-udev"

// EnumerateSerialDevices lists the device nodes of every TTY the local
// udev database currently knows about, so a node can offer them as
// SerialSource candidates instead of requiring an operator to spell out
// /dev/ttyUSB0 by hand.
func EnumerateSerialDevices() ([]string, error) {
	var u udev.Udev
	var e = u.NewEnumerate()

	if err := e.AddMatchSubsystem("tty"); err != nil {
		return nil, err
	}

	devices, err := e.Devices()
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, d := range devices {
		var node = d.Devnode()
		if node == "" {
			continue
		}
		paths = append(paths, node)
	}
	return paths, nil
}
