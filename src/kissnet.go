package direwolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Attach a radio channel to a KISS TNC over TCP.
 *
 * Description:	This is the normal arrangement.  Something like a
 *		sound card TNC runs elsewhere and exposes its KISS
 *		port on TCP, default 8001.  We connect as a client.
 *
 *---------------------------------------------------------------*/

import (
	"net"
)

/*-------------------------------------------------------------------
 *
 * Name:        kissnet_open
 *
 * Purpose:     Connect to network KISS TNC.
 *
 * Inputs:	kps	- Port status block.
 *
 *		address	- "host:port" of KISS TNC.
 *
 * Returns:	0 for success, -1 for failure.
 *
 *--------------------------------------------------------------------*/

func kissnet_open(kps *kissport_status_s, address string) int {

	var conn, connErr = net.Dial("tcp", address)

	if connErr != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Channel %d: Unable to connect to KISS TNC at %s: %s\n", kps.channel, address, connErr)
		return (-1)
	}

	kps.conn = conn

	text_color_set(DW_COLOR_INFO)
	dw_printf("Channel %d: Connected to KISS TNC at %s\n", kps.channel, address)

	return (0)
}

/*-------------------------------------------------------------------
 *
 * Name:        kissnet_listen_thread
 *
 * Purpose:     Process everything the TNC sends to us.
 *
 * Description:	Reads bytes from the TCP connection and feeds them
 *		to kiss_rec_byte which reassembles the KISS frames.
 *
 *--------------------------------------------------------------------*/

func kissnet_listen_thread(kps *kissport_status_s) {

	var data = make([]byte, 4096)

	for {
		var length, err = kps.conn.Read(data)

		if err != nil {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Channel %d: Read error from TCP KISS TNC (%s).\n", kps.channel, err)
			kps.conn.Close()
			kps.conn = nil
			return
		}

		for j := 0; j < length; j++ {
			// Feed in one byte at a time.
			// kiss_process_msg is called when a complete frame has been accumulated.

			kiss_rec_byte(&kps.kf, data[j], kiss_port_debug, kps.channel)
		}
	}
} /* end kissnet_listen_thread */
