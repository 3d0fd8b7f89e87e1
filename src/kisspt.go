package direwolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Attach a radio channel to a KISS TNC on a pseudo terminal.
 *
 * Description:	We create a pseudo terminal pair and use the master
 *		side as if it were a serial port.  Whatever provides
 *		the TNC, often a test harness, opens the slave side.
 *		A symlink with a fixed name points at the slave side
 *		because the pty name is not the same every time.
 *
 *		Linux only.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

/*
 * Symlink to pseudo terminal name which changes.
 */

const TMP_KISSTNC_SYMLINK = "/tmp/kisstnc"

/*-------------------------------------------------------------------
 *
 * Name:        kisspt_open
 *
 * Purpose:     Create a pseudo terminal for the KISS TNC connection.
 *
 * Inputs:	kps	- Port status block.
 *
 * Returns:	0 for success, -1 for failure.
 *
 *--------------------------------------------------------------------*/

func kisspt_open(kps *kissport_status_s) int {

	var ptmx, pts, err = pty.Open()
	if err != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("ERROR - Could not create pseudo terminal for KISS TNC: %s.\n", err)
		return (-1)
	}

	kps.pt_master = ptmx
	kps.pt_slave = pts

	/*
	 * The line discipline must not mess with the byte stream.
	 * KISS framing characters look like ordinary text to the tty layer.
	 */

	var rawErr = kisspt_make_raw(ptmx)
	if rawErr != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Could not put pseudo terminal in raw mode: %s.\n", rawErr)
	}

	text_color_set(DW_COLOR_INFO)
	dw_printf("Channel %d: KISS TNC pseudo terminal is %s\n", kps.channel, pts.Name())

	/*
	 * The device name is not the same every time.
	 * This is inconvenient because it might be necessary to change
	 * a configuration on the other side when the name changes.
	 * Create a symlink so the name stays the same.
	 * With more than one channel on pty ports, append the channel number.
	 */

	var symlink = TMP_KISSTNC_SYMLINK
	if kps.channel > 0 {
		symlink = fmt.Sprintf("%s%d", TMP_KISSTNC_SYMLINK, kps.channel)
	}

	os.Remove(symlink)

	var symlinkErr = os.Symlink(pts.Name(), symlink)
	if symlinkErr == nil {
		dw_printf("Created symlink %s -> %s\n", symlink, pts.Name())
	} else {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Failed to create symlink %s: %s\n", symlink, symlinkErr)
	}

	return (0)
}

/*-------------------------------------------------------------------
 *
 * Name:        kisspt_make_raw
 *
 * Purpose:     Put the pseudo terminal into raw mode.
 *
 * Inputs:	f	- Master side of the pseudo terminal.
 *
 * Returns:	nil for success.
 *
 *--------------------------------------------------------------------*/

func kisspt_make_raw(f *os.File) error {

	var tio, err = unix.IoctlGetTermios(int(f.Fd()), unix.TCGETS)
	if err != nil {
		return err
	}

	tio.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	tio.Oflag &^= unix.OPOST
	tio.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	tio.Cflag &^= unix.CSIZE | unix.PARENB
	tio.Cflag |= unix.CS8
	tio.Cc[unix.VMIN] = 1
	tio.Cc[unix.VTIME] = 0

	return unix.IoctlSetTermios(int(f.Fd()), unix.TCSETS, tio)
}

/*-------------------------------------------------------------------
 *
 * Name:        kisspt_get
 *
 * Purpose:     Read one byte from the pseudo terminal.  Wait if not ready.
 *
 * Returns:	One byte (value 0 - 255) or error.
 *
 * Description:	There is room for improvement here.  Reading one byte
 *		at a time is inefficient.  With GHz processors and the
 *		low data rate here it does not make a noticeable difference.
 *
 *--------------------------------------------------------------------*/

func kisspt_get(kps *kissport_status_s) (byte, error) {

	var one = make([]byte, 1)

	for {
		var n, err = kps.pt_master.Read(one)
		if err != nil {
			return 0, err
		}
		if n == 1 {
			return one[0], nil
		}
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        kisspt_listen_thread
 *
 * Purpose:     Process everything the TNC sends to us.
 *
 *--------------------------------------------------------------------*/

func kisspt_listen_thread(kps *kissport_status_s) {

	for {
		var ch, err = kisspt_get(kps)

		if err != nil {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Channel %d: Read error from pseudo terminal KISS TNC: %s\n", kps.channel, err)
			kps.pt_master.Close()
			kps.pt_master = nil
			return
		}

		kiss_rec_byte(&kps.kf, ch, kiss_port_debug, kps.channel)
	}
} /* end kisspt_listen_thread */
