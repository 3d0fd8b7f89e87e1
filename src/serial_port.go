package direwolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Interface to serial port, hiding operating system differences.
 *
 *---------------------------------------------------------------*/

import (
	"github.com/pkg/term"
)

/*-------------------------------------------------------------------
 *
 * Name:	serial_port_open
 *
 * Purpose:	Open serial port.
 *
 * Inputs:	devicename	- Usually /dev/tty...
 *				  Could be /dev/rfcomm0 for Bluetooth.
 *
 *		baud		- Speed.  1200, 4800, 9600 bps, etc.
 *				  If 0, leave it alone.
 *
 * Returns 	Handle for serial port or nil for error.
 *
 *---------------------------------------------------------------*/

func serial_port_open(devicename string, baud int) *term.Term {

	var fd, err = term.Open(devicename, term.RawMode)

	if err != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("ERROR - Could not open serial port %s: %s.\n", devicename, err)
		return nil
	}

	switch baud {
	case 0: /* Leave it alone. */
	case 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200:
		fd.SetSpeed(baud)
	default:
		text_color_set(DW_COLOR_ERROR)
		dw_printf("serial_port_open: Unsupported speed %d.  Using 9600.\n", baud)
		fd.SetSpeed(9600)
	}

	return (fd)
}

/*-------------------------------------------------------------------
 *
 * Name:	serial_port_write
 *
 * Purpose:	Send characters to serial port.
 *
 * Inputs:	fd	- Handle from open.
 *		data	- Slice of bytes.
 *
 * Returns 	Number of bytes written.  Should be the same as len.
 *		-1 if error.
 *
 *---------------------------------------------------------------*/

func serial_port_write(fd *term.Term, data []byte) int {

	if fd == nil {
		return (-1)
	}

	var written, err = fd.Write(data)
	if written != len(data) || err != nil {
		return (-1)
	}

	return written
} /* serial_port_write */

/*-------------------------------------------------------------------
 *
 * Name:        serial_port_get1
 *
 * Purpose:     Get one byte from the serial port.  Wait if not ready.
 *
 * Inputs:	fd	- Handle from open.
 *
 * Returns:	Value of byte in range of 0 to 255.
 *
 *--------------------------------------------------------------------*/

func serial_port_get1(fd *term.Term) (byte, error) {

	var one = make([]byte, 1)
	var n, err = fd.Read(one)

	if n != 1 {
		return 0, err
	}

	return one[0], nil
}

/*-------------------------------------------------------------------
 *
 * Name:        serial_port_close
 *
 * Purpose:     Close the device.
 *
 * Inputs:	fd	- Handle from open.
 *
 *--------------------------------------------------------------------*/

func serial_port_close(fd *term.Term) {
	if fd == nil {
		return
	}
	fd.Close()
}

/* end serial_port.c */
