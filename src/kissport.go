package direwolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Attach radio channels to external KISS TNCs.
 *
 * Description:	Each radio channel is served by a KISS TNC reached over
 *		TCP, a serial port, or a pseudo terminal.  Outgoing
 *		frames are encapsulated in KISS format and written to
 *		the port.  A listen thread per port collects bytes,
 *		reassembles KISS frames, and hands received packets
 *		to the receive queue.
 *
 *---------------------------------------------------------------*/

import (
	"net"
	"os"

	"github.com/pkg/term"
)

/*
 * Status block for each KISS port.  One per radio channel.
 */

type kissport_status_s struct {
	channel int /* Our radio channel number. */

	transport kiss_transport_t

	conn net.Conn /* For KISS_PORT_TCP. */

	serial_fd *term.Term /* For KISS_PORT_SERIAL. */

	pt_master *os.File /* For KISS_PORT_PTY. */
	pt_slave  *os.File

	kf kiss_frame_t /* Accumulated KISS frame and state of decoder. */
}

var kiss_ports [MAX_RADIO_CHANS]*kissport_status_s

var kiss_port_debug = 0 /* Print information flowing from and to the TNC. */

func kiss_port_set_debug(n int) {
	kiss_port_debug = n
}

/*-------------------------------------------------------------------
 *
 * Name:        kiss_port_init
 *
 * Purpose:     Open the KISS port for each radio channel and start
 *		the listen threads.
 *
 * Inputs:	pa	- Channel configuration.  The transport type and
 *			  device/address for each channel come from here.
 *
 * Returns:	0 for success, -1 if any port could not be opened.
 *
 *--------------------------------------------------------------------*/

func kiss_port_init(pa *audio_s) int {

	var failed = 0

	for ch := 0; ch < MAX_RADIO_CHANS; ch++ {
		if pa.chan_medium[ch] != MEDIUM_RADIO {
			continue
		}

		var kps = new(kissport_status_s)
		kps.channel = ch
		kps.transport = pa.achan[ch].kiss_transport

		switch kps.transport {

		case KISS_PORT_TCP:
			if kissnet_open(kps, pa.achan[ch].kiss_address) < 0 {
				failed++
				continue
			}
			kiss_ports[ch] = kps
			go kissnet_listen_thread(kps)

		case KISS_PORT_SERIAL:
			if kissserial_open(kps, pa.achan[ch].kiss_device, pa.achan[ch].kiss_speed) < 0 {
				failed++
				continue
			}
			kiss_ports[ch] = kps
			go kissserial_listen_thread(kps)

		case KISS_PORT_PTY:
			if kisspt_open(kps) < 0 {
				failed++
				continue
			}
			kiss_ports[ch] = kps
			go kisspt_listen_thread(kps)

		default:
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Channel %d has no KISS port configured.\n", ch)
			failed++
		}
	}

	if failed > 0 {
		return (-1)
	}

	return (0)

} /* end kiss_port_init */

/*-------------------------------------------------------------------
 *
 * Name:        kiss_port_send_frame
 *
 * Purpose:     Encapsulate an AX.25 frame in KISS format and send it
 *		to the TNC serving the channel.
 *
 * Inputs:	channel	- Radio channel number.
 *
 *		pp	- The packet.  Caller retains ownership.
 *
 * Returns:	Number of bits that will go over the air, for transmit
 *		timing.  Frame plus FCS plus a separating flag.
 *		0 if the port is not usable.
 *
 *--------------------------------------------------------------------*/

func kiss_port_send_frame(channel int, pp *packet_t) int {

	if channel < 0 || channel >= MAX_RADIO_CHANS || kiss_ports[channel] == nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Can not transmit.  No KISS port for channel %d.\n", channel)
		return (0)
	}

	var kps = kiss_ports[channel]

	var fdata = ax25_get_frame_data(pp)

	/* The TNC has only us on the other end so channel nybble is 0. */

	var stemp = []byte{byte(0<<4) | KISS_CMD_DATA_FRAME}
	stemp = append(stemp, fdata...)

	var kiss_buff = kiss_encapsulate(stemp)

	if kiss_port_debug > 0 {
		kiss_debug_print(TO_TNC, "", kiss_buff)
	}

	if kiss_port_write(kps, kiss_buff) < 0 {
		return (0)
	}

	/* Data plus FCS plus one flag, 8 bits each. */

	return ((len(fdata) + 3) * 8)

} /* end kiss_port_send_frame */

/*-------------------------------------------------------------------
 *
 * Name:        kiss_port_send_cmd
 *
 * Purpose:     Send a KISS command, such as TXDELAY or Persistence,
 *		to the TNC serving the channel.
 *
 * Inputs:	channel	- Radio channel number.
 *
 *		cmd	- KISS_CMD_TXDELAY, etc.
 *
 *		value	- One byte parameter value.
 *
 *--------------------------------------------------------------------*/

func kiss_port_send_cmd(channel int, cmd int, value byte) {

	if channel < 0 || channel >= MAX_RADIO_CHANS || kiss_ports[channel] == nil {
		return
	}

	var kps = kiss_ports[channel]

	var stemp = []byte{byte(0<<4) | byte(cmd&0xf), value}

	var kiss_buff = kiss_encapsulate(stemp)

	if kiss_port_debug > 0 {
		kiss_debug_print(TO_TNC, "", kiss_buff)
	}

	kiss_port_write(kps, kiss_buff)

} /* end kiss_port_send_cmd */

func kiss_port_write(kps *kissport_status_s, kiss_buff []byte) int {

	switch kps.transport {

	case KISS_PORT_TCP:
		if kps.conn == nil {
			return (-1)
		}
		var n, err = kps.conn.Write(kiss_buff)
		if n != len(kiss_buff) || err != nil {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("ERROR writing KISS frame to TCP TNC, channel %d.\n", kps.channel)
			return (-1)
		}

	case KISS_PORT_SERIAL:
		var rc = serial_port_write(kps.serial_fd, kiss_buff)
		if rc != len(kiss_buff) {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("ERROR writing KISS frame to serial port, channel %d.\n", kps.channel)
			return (-1)
		}

	case KISS_PORT_PTY:
		if kps.pt_master == nil {
			return (-1)
		}
		var n, err = kps.pt_master.Write(kiss_buff)
		if n != len(kiss_buff) || err != nil {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("ERROR writing KISS frame to pseudo terminal, channel %d.\n", kps.channel)
			return (-1)
		}
	}

	return (len(kiss_buff))
}
