package direwolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Attach a radio channel to a KISS TNC on a serial port.
 *
 * Description:	A hardware TNC, or a radio with built in TNC, is
 *		attached by a serial port or USB serial adapter.
 *
 *---------------------------------------------------------------*/

/*-------------------------------------------------------------------
 *
 * Name:        kissserial_open
 *
 * Purpose:     Open serial port connection to KISS TNC.
 *
 * Inputs:	kps	- Port status block.
 *
 *		device	- Serial device name, e.g. /dev/ttyUSB0.
 *
 *		speed	- Serial port speed, bps.
 *
 * Returns:	0 for success, -1 for failure.
 *
 *--------------------------------------------------------------------*/

func kissserial_open(kps *kissport_status_s, device string, speed int) int {

	kps.serial_fd = serial_port_open(device, speed)

	if kps.serial_fd == nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Channel %d: Unable to open KISS TNC serial port %s.\n", kps.channel, device)
		return (-1)
	}

	text_color_set(DW_COLOR_INFO)
	dw_printf("Channel %d: Opened KISS TNC serial port %s.\n", kps.channel, device)

	return (0)
}

/*-------------------------------------------------------------------
 *
 * Name:        kissserial_listen_thread
 *
 * Purpose:     Process everything the TNC sends to us.
 *
 *--------------------------------------------------------------------*/

func kissserial_listen_thread(kps *kissport_status_s) {

	for {
		var ch, err = serial_port_get1(kps.serial_fd)

		if err != nil {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Channel %d: Read error from serial port KISS TNC: %s\n", kps.channel, err)
			serial_port_close(kps.serial_fd)
			kps.serial_fd = nil
			return
		}

		// Feed in one byte at a time.
		// kiss_process_msg is called when a complete frame has been accumulated.

		kiss_rec_byte(&kps.kf, ch, kiss_port_debug, kps.channel)
	}
} /* end kissserial_listen_thread */
