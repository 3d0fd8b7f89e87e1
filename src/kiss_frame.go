package direwolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Common code used by the serial port, network, and pseudo
 *		terminal flavors of the KISS protocol.
 *
 * Description: The KISS TNC protocol is described in http://www.ka9q.net/papers/kiss.html
 *
 * 		Briefly, a frame is composed of
 *
 *			* FEND (0xC0)
 *			* Contents - with special escape sequences so a 0xc0
 *				byte in the data is not taken as end of frame.
 *			* FEND
 *
 *		The first byte of the frame contains:
 *
 *			* radio channel in upper nybble.
 *				(KISS doc uses "port" but I don't like that because it has too many meanings.)
 *			* command in lower nybble.
 *
 *		Commands from application to TNC:
 *
 *			_0	Data Frame	AX.25 frame in raw format.
 *
 *			_1	TXDELAY		See explanation in xmit.go.
 *
 *			_2	Persistence	"	"
 *
 *			_3 	SlotTime	"	"
 *
 *			_4	TXtail		"	"
 *
 *			_5	FullDuplex	Transmit immediately without
 *						waiting for channel to be clear.
 *
 *			_6	SetHardware	TNC specific.
 *
 *			FF	Return		Exit KISS mode.  Ignored.
 *
 *		Messages sent back by the TNC:
 *
 *			_0	Data Frame	Received AX.25 frame in raw format.
 *
 *			_6	SetHardware	TNC specific.
 *						Usually a response to a query.
 *
 *---------------------------------------------------------------*/

import (
	"bytes"
)

const KISS_CMD_DATA_FRAME = 0
const KISS_CMD_TXDELAY = 1
const KISS_CMD_PERSISTENCE = 2
const KISS_CMD_SLOTTIME = 3
const KISS_CMD_TXTAIL = 4
const KISS_CMD_FULLDUPLEX = 5
const KISS_CMD_SET_HARDWARE = 6
const XKISS_CMD_DATA = 12 // Not supported. http://he.fi/pub/oh7lzb/bpq/multi-kiss.pdf
const XKISS_CMD_POLL = 14 // Not supported.
const KISS_CMD_END_KISS = 15

/*
 * Special characters used by SLIP protocol.
 */

const FEND = 0xC0
const FESC = 0xDB
const TFEND = 0xDC
const TFESC = 0xDD

type kiss_state_e int

const (
	KS_SEARCHING  kiss_state_e = 0 /* Looking for FEND to start KISS frame. Must be 0 so we can simply zero whole structure to initialize. */
	KS_COLLECTING kiss_state_e = 1 /* In process of collecting KISS frame. */
)

const MAX_KISS_LEN = 2048 /* Spec calls for at least 1024. */
/* Might want to make it longer to accommodate */
/* maximum packet length. */

const MAX_NOISE_LEN = 100

type kiss_frame_t struct {
	state kiss_state_e

	kiss_msg [MAX_KISS_LEN]byte
	/* Leading FEND is optional. */
	/* Contains escapes and ending FEND. */
	kiss_len int

	noise     [MAX_NOISE_LEN]byte
	noise_len int
}

type fromto_t int

const (
	FROM_TNC fromto_t = 0
	TO_TNC   fromto_t = 1
)

/*-------------------------------------------------------------------
 *
 * Name:        kiss_encapsulate
 *
 * Purpose:     Encapsulate a frame into KISS format.
 *
 * Inputs:	in	- Input block.
 *			  First byte is the "type indicator" with type and
 *			  channel but we don't care about that here.
 *			  If it happens to be FEND or FESC, it is escaped, like any other byte.
 *
 *			  Note that this is "binary" data and can contain
 *			  nul (0x00) values.   Don't treat it like a text string!
 *
 * Returns:	The KISS encoded representation.  The sequence is:
 *			FEND		- Magic frame separator.
 *			data		- with certain byte values replaced so
 *					  FEND will never occur here.
 *			FEND		- Magic frame separator.
 *
 *		Absolute max length (extremely unlikely) will be twice input plus 2.
 *
 *-----------------------------------------------------------------*/

func kiss_encapsulate(in []byte) []byte {
	var buf bytes.Buffer

	buf.WriteByte(FEND)

	for _, b := range in {
		switch b {
		case FEND:
			buf.WriteByte(FESC)
			buf.WriteByte(TFEND)
		case FESC:
			buf.WriteByte(FESC)
			buf.WriteByte(TFESC)
		default:
			buf.WriteByte(b)
		}
	}

	buf.WriteByte(FEND)

	return buf.Bytes()
}

/*-------------------------------------------------------------------
 *
 * Name:        kiss_unwrap
 *
 * Purpose:     Extract original data from a KISS frame.
 *
 * Inputs:	in	- The received KISS encoded representation.
 *			  The sequence is:
 *				FEND		- Magic frame separator, optional.
 *				data		- with certain byte values replaced so
 *						  FEND will never occur here.
 *				FEND		- Magic frame separator.
 *
 * Returns:	The resulting frame without the escapes or FEND.
 *		First byte is the "type indicator" with type and
 *		channel but we don't care about that here.
 *		Note that this is "binary" data and can contain
 *		nul (0x00) values.   Don't treat it like a text string!
 *
 *-----------------------------------------------------------------*/

func kiss_unwrap(in []byte) []byte {

	if len(in) < 2 {
		/* Need at least the "type indicator" byte and FEND. */
		/* Probably more. */
		text_color_set(DW_COLOR_ERROR)
		dw_printf("KISS message less than minimum length.\n")
		return []byte{}
	}

	if in[len(in)-1] == FEND {
		in = in[:len(in)-1] // Ignore last FEND
	} else {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("KISS frame should end with FEND.\n")
	}

	if in[0] == FEND {
		in = in[1:] // Skip over optional leading FEND
	}

	var escapedMode = false
	var buf bytes.Buffer
	for _, b := range in {
		if b == FEND {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("KISS frame should not have FEND in the middle.\n")
		}

		if escapedMode {
			switch b {
			case TFESC:
				buf.WriteByte(FESC)
			case TFEND:
				buf.WriteByte(FEND)
			default:
				text_color_set(DW_COLOR_ERROR)
				dw_printf("KISS protocol error.  Found 0x%02x after FESC.\n", b)
			}
			escapedMode = false
		} else if b == FESC {
			escapedMode = true
		} else {
			buf.WriteByte(b)
		}
	}

	return buf.Bytes()
} /* end kiss_unwrap */

/*-------------------------------------------------------------------
 *
 * Name:        hex_dump
 *
 * Purpose:     Print block of data in hexadecimal and character form
 *		for debugging.
 *
 *--------------------------------------------------------------------*/

func hex_dump(p []byte) {
	var offset = 0
	for offset < len(p) {
		var n = len(p) - offset
		if n > 16 {
			n = 16
		}
		dw_printf("  %03x: ", offset)
		for i := 0; i < n; i++ {
			dw_printf(" %02x", p[offset+i])
		}
		for i := n; i < 16; i++ {
			dw_printf("   ")
		}
		dw_printf("  ")
		for i := 0; i < n; i++ {
			var ch = p[offset+i]
			if ch >= ' ' && ch <= '~' {
				dw_printf("%c", ch)
			} else {
				dw_printf(".")
			}
		}
		dw_printf("\n")
		offset += n
	}
} /* end hex_dump */

/*-------------------------------------------------------------------
 *
 * Name:        kiss_debug_print
 *
 * Purpose:     Print message to/from the TNC for debugging.
 *
 * Inputs:	fromto		- Direction of message.
 *		special		- Comment if not a KISS frame.
 *		pmsg		- The message block.
 *
 *--------------------------------------------------------------------*/

func kiss_debug_print(fromto fromto_t, special string, pmsg []byte) {
	var direction = []string{"from", "to"}
	var prefix = []string{"<<<", ">>>"}
	var function = []string{
		"Data frame", "TXDELAY", "P", "SlotTime",
		"TXtail", "FullDuplex", "SetHardware", "Invalid 7",
		"Invalid 8", "Invalid 9", "Invalid 10", "Invalid 11",
		"Invalid 12", "Invalid 13", "Invalid 14", "Return"}

	text_color_set(DW_COLOR_DEBUG)

	dw_printf("\n")
	if special == "" {

		if pmsg[0] == FEND {
			/* Skip over FEND if present. */
			pmsg = pmsg[1:]
		}

		dw_printf("%s %s %s KISS TNC, channel %d, total length = %d\n",
			prefix[fromto], function[pmsg[0]&0xf], direction[fromto],
			(pmsg[0]>>4)&0xf, len(pmsg))
	} else {
		dw_printf("%s %s %s KISS TNC, total length = %d\n",
			prefix[fromto], special, direction[fromto],
			len(pmsg))
	}

	hex_dump(pmsg)
}

/*-------------------------------------------------------------------
 *
 * Name:        kiss_rec_byte
 *
 * Purpose:     Process one byte from the KISS TNC.
 *
 * Inputs:	kf	- Current state of building a frame.
 *		ch	- A byte from the input stream.
 *		debug	- Activates debug output.
 *		channel	- Radio channel number assigned to this port.
 *			  The channel nybble in the received frame is
 *			  ignored; a TNC serves exactly one of our channels.
 *
 * Outputs:	kf	- Current state is updated.
 *
 * Description:	When a complete frame has been accumulated,
 *		kiss_process_msg is called.
 *
 *-----------------------------------------------------------------*/

func kiss_rec_byte(kf *kiss_frame_t, ch byte, debug int, channel int) {

	switch kf.state {
	case KS_SEARCHING: /* Searching for starting FEND. */
		if ch == FEND {
			/* Start of frame.  But first print any collected noise for debugging. */

			if kf.noise_len > 0 {
				if debug > 0 {
					kiss_debug_print(FROM_TNC, "Rejected Noise", kf.noise[:kf.noise_len])
				}
				kf.noise_len = 0
			}

			kf.kiss_len = 1
			kf.kiss_msg[0] = ch
			kf.state = KS_COLLECTING
			return
		}

		/* Noise to be rejected.  Some TNCs send a banner or */
		/* command echo before entering KISS mode. */

		if kf.noise_len < MAX_NOISE_LEN {
			kf.noise[kf.noise_len] = ch
			kf.noise_len++
		}
		if ch == '\r' {
			if debug > 0 {
				kiss_debug_print(FROM_TNC, "Rejected Noise", kf.noise[:kf.noise_len])
			}
			kf.noise_len = 0
		}
		return

	case KS_COLLECTING: /* Frame collection in progress. */
		if ch == FEND {
			/* End of frame. */

			if kf.kiss_len == 0 {
				/* Empty frame.  Starting a new one. */
				kf.kiss_msg[kf.kiss_len] = ch
				kf.kiss_len++
				return
			}
			if kf.kiss_len == 1 && kf.kiss_msg[0] == FEND {
				/* Empty frame.  Just go on collecting. */
				return
			}

			kf.kiss_msg[kf.kiss_len] = ch
			kf.kiss_len++
			if debug > 0 {
				/* As received over the wire from the TNC. */
				kiss_debug_print(FROM_TNC, "", kf.kiss_msg[:kf.kiss_len])
			}

			var unwrapped = kiss_unwrap(kf.kiss_msg[:kf.kiss_len])

			if debug >= 2 {
				text_color_set(DW_COLOR_DEBUG)
				dw_printf("\n")
				dw_printf("Packet content after removing KISS framing and any escapes:\n")
				/* Don't include the "type" indicator. */
				hex_dump(unwrapped[1:])
			}

			kiss_process_msg(unwrapped, debug, channel)

			kf.state = KS_SEARCHING
			return
		}

		if kf.kiss_len < MAX_KISS_LEN {
			kf.kiss_msg[kf.kiss_len] = ch
			kf.kiss_len++
		} else {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("KISS message exceeded maximum length.\n")
		}
		return
	}
} /* end kiss_rec_byte */

/*-------------------------------------------------------------------
 *
 * Name:        kiss_process_msg
 *
 * Purpose:     Process a message from the KISS TNC.
 *
 * Inputs:	kiss_msg	- Kiss frame with FEND and escapes removed.
 *				  The first byte contains channel and command.
 *
 *		debug		- Debug option is selected.
 *
 *		channel		- Our radio channel number for this port.
 *
 * Description:	A data frame is converted to a packet object and
 *		handed to the receive queue, which corresponds to
 *		the PH-DATA Indication of the protocol spec.
 *
 *-----------------------------------------------------------------*/

func kiss_process_msg(kiss_msg []byte, debug int, channel int) {

	if len(kiss_msg) < 1 {
		return
	}

	var cmd = kiss_msg[0] & 0xf

	switch cmd {
	case KISS_CMD_DATA_FRAME: /* 0 = Data Frame */

		var pp = ax25_from_frame(kiss_msg[1:])
		if pp == nil {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("ERROR - Invalid KISS data frame from TNC.\n")
			return
		}

		/* Hand it to the single processing thread. */
		/* This corresponds to PH-DATA Indication in the protocol spec. */

		dlq_rec_frame(channel, pp)

	case KISS_CMD_SET_HARDWARE: /* 6 = TNC specific.  Usually response to a query. */

		text_color_set(DW_COLOR_INFO)
		dw_printf("[%d] KISS set hardware response: %s\n", channel, string(kiss_msg[1:]))

	/*
	 * The rest should only go TO the TNC and not come FROM it.
	 */
	default:
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Unexpected KISS command %d from TNC, channel %d\n", cmd, channel)
		kiss_debug_print(FROM_TNC, "", kiss_msg)
	}
} /* end kiss_process_msg */
