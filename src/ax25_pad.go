package direwolf

/*------------------------------------------------------------------
 *
 * Name:	ax25_pad
 *
 * Purpose:	Packet assembler and disassembler.
 *
 *		An AX.25 frame is a sequence of octets.  Rather than
 *		passing around (pointer, length) everywhere, we keep the
 *		frame in a packet object along with a little metadata
 *		and provide accessors for the interesting pieces.
 *
 *		Frame layout:
 *
 *			Destination Address  (7 octets)
 *			Source Address       (7 octets)
 *			0-8 Digipeater Addresses  (7 octets each)
 *			Control (1 or 2 octets)
 *			Protocol ID (0, 1 or 2 octets)
 *			Information (variable)
 *
 *		Each address is 6 characters shifted left one bit,
 *		followed by an SSID octet.  The low bit of the SSID
 *		octet is set only on the last address.  The high bit
 *		carries command/response (dst, src) or has-been-repeated
 *		(digipeaters).
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

const AX25_MAX_REPEATERS = 8
const AX25_MIN_ADDRS = 2  /* Destination & Source. */
const AX25_MAX_ADDRS = 10 /* Destination, Source, 8 digipeaters. */

const AX25_DESTINATION = 0 /* Address positions in frame. */
const AX25_SOURCE = 1
const AX25_REPEATER_1 = 2
const AX25_REPEATER_8 = 9

const AX25_MAX_ADDR_LEN = 12 /* Room for "callsign-ssid" plus nul. */

const AX25_MIN_INFO_LEN = 0
const AX25_MAX_INFO_LEN = 2048

const AX25_MIN_PACKET_LEN = (2*7 + 1)
const AX25_MAX_PACKET_LEN = (AX25_MAX_ADDRS*7 + 2 + 3 + AX25_MAX_INFO_LEN)

const AX25_UI_FRAME = 3 /* Control field value. */

const AX25_PID_NO_LAYER_3 = 0xf0
const AX25_PID_NETROM = 0xcf
const AX25_PID_SEGMENTATION_FRAGMENT = 0x08
const AX25_PID_ESCAPE_CHARACTER = 0xff

const MAGIC = 0x41583235

/*
 * SSID octet:   H  R  R  SSID  0
 *
 *	H	Command/response for destination and source,
 *		has-been-repeated for digipeaters.
 *	R R	Reserved, normally 1 1.
 *	SSID	Substation ID, 0 - 15.
 *	low bit	Set on the last address in the frame.
 */

const SSID_H_MASK = 0x80
const SSID_H_SHIFT = 7

const SSID_RR_MASK = 0x60

const SSID_SSID_MASK = 0x1e
const SSID_SSID_SHIFT = 1

const SSID_LAST_MASK = 0x01

type packet_t struct {
	magic1 int /* Guard against bad pointers. */

	seq int /* Sequence number for debugging. */

	nextp *packet_t /* Pointer to next in queue. */

	num_addr int /* Number of addresses in frame. */
	/* AX25_MIN_ADDRS .. AX25_MAX_ADDRS for a valid frame. */
	/* 0 if it doesn't look like AX.25. */
	/* -1 means not determined yet. */

	frame_len int /* Frame length without CRC. */

	modulo ax25_modulo_t /* I & S frames have sequence numbers of either 3 bits (modulo 8) */
	/* or 7 bits (modulo 128), conveyed by 1 or 2 control octets. */
	/* We can't tell from an isolated frame.  If we are part of the */
	/* conversation we know; if just eavesdropping we guess. */

	frame_data [AX25_MAX_PACKET_LEN + 1]byte
	/* Raw frame contents, without the CRC. */

	magic2 int /* Will get stomped on if above overflows. */
}

type cmdres_t int

const (
	cr_00  cmdres_t = 2
	cr_cmd cmdres_t = 1
	cr_res cmdres_t = 0
	cr_11  cmdres_t = 3
)

type ax25_modulo_t int

const (
	modulo_unknown ax25_modulo_t = 0
	modulo_8       ax25_modulo_t = 8
	modulo_128     ax25_modulo_t = 128
)

type ax25_frame_type_t int

const (
	frame_type_I       ax25_frame_type_t = iota // Information
	frame_type_S_RR                             // Receive Ready - System Ready To Receive
	frame_type_S_RNR                            // Receive Not Ready - TNC Buffer Full
	frame_type_S_REJ                            // Reject Frame - Out of Sequence or Duplicate
	frame_type_S_SREJ                           // Selective Reject - Request single frame repeat
	frame_type_U_SABME                          // Set Async Balanced Mode, Extended
	frame_type_U_SABM                           // Set Async Balanced Mode
	frame_type_U_DISC                           // Disconnect
	frame_type_U_DM                             // Disconnect Mode
	frame_type_U_UA                             // Unnumbered Acknowledge
	frame_type_U_FRMR                           // Frame Reject
	frame_type_U_UI                             // Unnumbered Information
	frame_type_U_XID                            // Exchange Identification
	frame_type_U_TEST                           // Test
	frame_type_U                                // other Unnumbered, not used by AX.25.
	frame_not_AX25                              // Could not get control byte from frame. Must be last; value plus 1 sizes an array.
)

/*
 * Accumulate statistics.
 * If ax25_new_count gets much larger than ax25_delete_count plus the size of
 * the transmit queue we have a memory leak.
 */

var ax25_new_count = 0
var ax25_delete_count = 0
var last_seq_num int = 0

func SET_LAST_ADDR_FLAG(this_p *packet_t) {
	this_p.frame_data[this_p.num_addr*7-1] |= SSID_LAST_MASK
}

/*------------------------------------------------------------------------------
 *
 * Name:	ax25_new
 *
 * Purpose:	Allocate a new packet object.
 *
 *------------------------------------------------------------------------------*/

func ax25_new() *packet_t {

	last_seq_num++
	ax25_new_count++

	// Connected mode can legitimately hold quite a few at once.

	if ax25_new_count > ax25_delete_count+256 {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Memory leak for packet objects.  new=%d, delete=%d\n", ax25_new_count, ax25_delete_count)
	}

	var this_p = new(packet_t)

	this_p.magic1 = MAGIC
	this_p.seq = last_seq_num
	this_p.magic2 = MAGIC
	this_p.num_addr = (-1)

	return (this_p)
}

/*------------------------------------------------------------------------------
 *
 * Name:	ax25_delete
 *
 * Purpose:	Destroy a packet object.  The garbage collector does the
 *		real work; this keeps the accounting honest and catches
 *		use after delete via the magic numbers.
 *
 *------------------------------------------------------------------------------*/

func ax25_delete(this_p *packet_t) {

	if this_p == nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("ERROR - nil pointer passed to ax25_delete.\n")
		return
	}

	ax25_delete_count++

	Assert(this_p.magic1 == MAGIC)
	Assert(this_p.magic2 == MAGIC)

	this_p.magic1 = 0
	this_p.magic2 = 0
}

/*------------------------------------------------------------------------------
 *
 * Name:	ax25_from_frame
 *
 * Purpose:	Change a sequence of octets, as received over the air,
 *		into the internal representation.
 *
 * Input:	data	- Frame contents, without the FCS.  Someone else
 *			  already checked the CRC.
 *
 * Returns:	Pointer to new packet object, or nil if it doesn't
 *		have an acceptable length.
 *
 *------------------------------------------------------------------------------*/

func ax25_from_frame(data []byte) *packet_t {

	var flen = len(data)
	if flen < AX25_MIN_PACKET_LEN || flen > AX25_MAX_PACKET_LEN {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Frame length %d not in allowable range of %d to %d.\n", flen, AX25_MIN_PACKET_LEN, AX25_MAX_PACKET_LEN)
		return (nil)
	}

	var this_p = ax25_new()

	copy(this_p.frame_data[:], data)
	this_p.frame_data[flen] = 0
	this_p.frame_len = flen

	this_p.num_addr = (-1)
	ax25_get_num_addr(this_p)

	return (this_p)
}

/*------------------------------------------------------------------------------
 *
 * Name:	ax25_parse_addr
 *
 * Purpose:	Parse address with optional ssid, e.g. "WB2OSZ-15".
 *
 * Inputs:	position	- AX25_DESTINATION, AX25_SOURCE, ... for
 *				  a more specific error message.  -1 if not used.
 *
 *		in_addr		- Input string.
 *
 *		strictness	- 1 for strict checking (6 characters max,
 *				  upper case only, SSID 0 to 15) as required
 *				  over the radio.  0 to be lenient.
 *
 * Returns:	out_addr	- Address without any SSID.
 *		out_ssid	- Numeric value of SSID.
 *		out_heard	- True if "*" found at the end.
 *		ok		- False on any error; other results undefined.
 *
 *------------------------------------------------------------------------------*/

var position_name = [1 + AX25_MAX_ADDRS]string{
	"", "Destination ", "Source ",
	"Digi1 ", "Digi2 ", "Digi3 ", "Digi4 ",
	"Digi5 ", "Digi6 ", "Digi7 ", "Digi8 "}

func ax25_parse_addr(position int, in_addr string, strictness int) (string, int, bool, bool) {

	var out_addr string
	var ssid int
	var heard bool

	if position < -1 {
		position = -1
	}
	if position > AX25_REPEATER_8 {
		position = AX25_REPEATER_8
	}
	position++ /* Adjust for position_name above. */

	if len(in_addr) == 0 {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("%sAddress \"%s\" is empty.\n", position_name[position], in_addr)
		return out_addr, ssid, heard, false
	}

	var maxlen = IfThenElse(strictness > 0, 6, (AX25_MAX_ADDR_LEN - 1))
	for i, p := range in_addr {
		if p == '-' || p == '*' {
			break
		}

		if i >= maxlen {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("%sAddress is too long. \"%s\" has more than %d characters.\n", position_name[position], in_addr, maxlen)
			return out_addr, ssid, heard, false
		}

		if !unicode.IsLetter(p) && !unicode.IsNumber(p) {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("%sAddress, \"%s\" contains character other than letter or digit in character position %d.\n", position_name[position], in_addr, i)
			return out_addr, ssid, heard, false
		}

		out_addr += string(p)

		if strictness > 0 && unicode.IsLower(p) {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("%sAddress has lower case letters. \"%s\" must be all upper case.\n", position_name[position], in_addr)
			return out_addr, ssid, heard, false
		}
	}

	in_addr = in_addr[len(out_addr):]

	var sstr string
	if len(in_addr) > 0 && in_addr[0] == '-' {
		in_addr = in_addr[1:]
		for i, p := range in_addr {
			if !unicode.IsLetter(p) && !unicode.IsNumber(p) {
				break
			}
			if i >= 2 {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("%sSSID is too long. SSID part of \"%s\" has more than 2 characters.\n", position_name[position], in_addr)
				return out_addr, ssid, heard, false
			}
			sstr += string(p)
			if strictness > 0 && !unicode.IsDigit(p) {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("%sSSID must be digits. \"%s\" has letters in SSID.\n", position_name[position], in_addr)
				return out_addr, ssid, heard, false
			}
		}
		var k, kErr = strconv.Atoi(sstr)
		if kErr != nil {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("%sMalformed SSID: \"%s\" could not be parsed.\n", position_name[position], in_addr)
			return out_addr, ssid, heard, false
		}
		if k < 0 || k > 15 {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("%sSSID out of range. SSID of \"%s\" not in range of 0 to 15.\n", position_name[position], in_addr)
			return out_addr, ssid, heard, false
		}
		ssid = k

		in_addr = in_addr[len(sstr):]
	}

	if len(in_addr) > 0 && in_addr[0] == '*' {
		heard = true
		in_addr = in_addr[1:]
	}

	if len(in_addr) != 0 {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Invalid character \"%c\" found in %saddress \"%s\".\n", in_addr[0], position_name[position], in_addr)
		return out_addr, ssid, heard, false
	}

	return out_addr, ssid, heard, true

} /* end ax25_parse_addr */

/*------------------------------------------------------------------------------
 *
 * Name:	ax25_get_num_addr
 *
 * Purpose:	Return number of addresses in current packet.
 *
 * Returns:	Number of addresses in the current packet.
 *		Should be in the range of 2 .. AX25_MAX_ADDRS.
 *		0 means it is not a valid AX.25 frame.
 *
 *------------------------------------------------------------------------------*/

func ax25_get_num_addr(this_p *packet_t) int {

	Assert(this_p.magic1 == MAGIC)
	Assert(this_p.magic2 == MAGIC)

	/* Use cached value if already set. */

	if this_p.num_addr >= 0 {
		return this_p.num_addr
	}

	this_p.num_addr = 0

	var addr_bytes = 0
	for a := 0; a < this_p.frame_len && addr_bytes == 0; a++ {
		if this_p.frame_data[a]&SSID_LAST_MASK != 0 {
			addr_bytes = a + 1
		}
	}

	if addr_bytes%7 == 0 {
		var addrs = addr_bytes / 7
		if addrs >= AX25_MIN_ADDRS && addrs <= AX25_MAX_ADDRS {
			this_p.num_addr = addrs
		}
	}

	return this_p.num_addr
}

func ax25_get_num_repeaters(this_p *packet_t) int {
	Assert(this_p.magic1 == MAGIC)
	Assert(this_p.magic2 == MAGIC)

	if this_p.num_addr >= 2 {
		return this_p.num_addr - 2
	}

	return (0)
}

/*------------------------------------------------------------------------------
 *
 * Name:	ax25_get_addr_with_ssid
 *
 * Purpose:	Return specified address with any SSID in current packet,
 *		e.g. "WB2OSZ-15".
 *
 *------------------------------------------------------------------------------*/

func ax25_get_addr_with_ssid(this_p *packet_t, n int) string {

	Assert(this_p.magic1 == MAGIC)
	Assert(this_p.magic2 == MAGIC)

	if n < 0 || n >= this_p.num_addr {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Internal error detected in ax25_get_addr_with_ssid.\n")
		dw_printf("Address index, %d, is out of range for number of addresses, %d.\n", n, this_p.num_addr)
		return "??????"
	}

	var station string
	for i := 0; i < 6; i++ {
		station += string((this_p.frame_data[n*7+i] >> 1) & 0x7f)
	}

	station = strings.TrimRight(station, " ")

	if len(station) == 0 {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Station address, in position %d, is empty!  This is not a valid AX.25 frame.\n", n)
	}

	var ssid = ax25_get_ssid(this_p, n)
	if ssid != 0 {
		station += fmt.Sprintf("-%d", ssid)
	}

	return station
} /* end ax25_get_addr_with_ssid */

func ax25_get_ssid(this_p *packet_t, n int) int {

	Assert(this_p.magic1 == MAGIC)
	Assert(this_p.magic2 == MAGIC)

	if n >= 0 && n < this_p.num_addr {
		return int((this_p.frame_data[n*7+6] & SSID_SSID_MASK) >> SSID_SSID_SHIFT)
	}

	text_color_set(DW_COLOR_ERROR)
	dw_printf("Internal error: ax25_get_ssid(%d), num_addr=%d\n", n, this_p.num_addr)
	return (0)
}

func ax25_set_ssid(this_p *packet_t, n int, ssid int) {

	Assert(this_p.magic1 == MAGIC)
	Assert(this_p.magic2 == MAGIC)

	if n >= 0 && n < this_p.num_addr {
		this_p.frame_data[n*7+6] = (this_p.frame_data[n*7+6] & ^(byte(SSID_SSID_MASK))) |
			byte((ssid<<SSID_SSID_SHIFT)&SSID_SSID_MASK)
	} else {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Internal error: ax25_set_ssid(%d,%d), num_addr=%d\n", n, ssid, this_p.num_addr)
	}
}

/*
 * "Has been repeated" flag for digipeater addresses,
 * command/response for destination and source.
 */

func ax25_get_h(this_p *packet_t, n int) int {

	Assert(this_p.magic1 == MAGIC)
	Assert(this_p.magic2 == MAGIC)
	Assert(n >= 0 && n < this_p.num_addr)

	return int((this_p.frame_data[n*7+6] & SSID_H_MASK) >> SSID_H_SHIFT)
}

/*------------------------------------------------------------------------------
 *
 * Name:	ax25_get_heard
 *
 * Purpose:	Return index of the station we actually heard:
 *		the last digipeater with the H bit set, or the source
 *		if none of them have been used yet.
 *
 *------------------------------------------------------------------------------*/

func ax25_get_heard(this_p *packet_t) int {

	Assert(this_p.magic1 == MAGIC)
	Assert(this_p.magic2 == MAGIC)

	var result = AX25_SOURCE

	for i := AX25_REPEATER_1; i < ax25_get_num_addr(this_p); i++ {
		if ax25_get_h(this_p, i) != 0 {
			result = i
		}
	}

	return result
}

/*------------------------------------------------------------------------------
 *
 * Name:	ax25_get_info
 *
 * Purpose:	Access the information part of the frame.
 *
 *------------------------------------------------------------------------------*/

func ax25_get_info(this_p *packet_t) []byte {

	Assert(this_p.magic1 == MAGIC)
	Assert(this_p.magic2 == MAGIC)

	if this_p.num_addr >= 2 {
		return this_p.frame_data[ax25_get_info_offset(this_p):this_p.frame_len]
	}

	/* Not AX.25.  Treat whole packet as info. */
	return ax25_get_frame_data(this_p)
}

/*
 * Next pointer is for the transmit queue.
 */

func ax25_set_nextp(this_p *packet_t, next_p *packet_t) {
	Assert(this_p.magic1 == MAGIC)
	Assert(this_p.magic2 == MAGIC)

	this_p.nextp = next_p
}

func ax25_get_nextp(this_p *packet_t) *packet_t {
	Assert(this_p.magic1 == MAGIC)
	Assert(this_p.magic2 == MAGIC)

	return (this_p.nextp)
}

func ax25_set_modulo(this_p *packet_t, modulo ax25_modulo_t) {
	Assert(this_p.magic1 == MAGIC)
	Assert(this_p.magic2 == MAGIC)

	this_p.modulo = modulo
}

/*------------------------------------------------------------------
 *
 * Function:	ax25_format_addrs
 *
 * Purpose:	Format all the addresses suitable for printing.
 *
 *		The AX.25 spec refers to this as "Source Path Header" - "TNC-2" Format
 *
 * Returns:	All addresses combined into a single string of the form:
 *
 *			"Source > Destination [ , repeater ... ] :"
 *
 *		An asterisk is displayed after the last digipeater
 *		with the "H" bit set.
 *
 *------------------------------------------------------------------*/

func ax25_format_addrs(this_p *packet_t) string {

	Assert(this_p.magic1 == MAGIC)
	Assert(this_p.magic2 == MAGIC)

	/* Don't get upset if no addresses. */

	if this_p.num_addr == 0 {
		return ""
	}

	var result = ax25_get_addr_with_ssid(this_p, AX25_SOURCE)

	result += ">"

	result += ax25_get_addr_with_ssid(this_p, AX25_DESTINATION)

	var heard = ax25_get_heard(this_p)

	for i := AX25_REPEATER_1; i < this_p.num_addr; i++ {
		result += ","
		result += ax25_get_addr_with_ssid(this_p, i)

		if i == heard {
			result += "*"
		}
	}

	result += ":"

	return result
}

/*------------------------------------------------------------------
 *
 * Function:	ax25_frame_type
 *
 * Purpose:	Extract the type of frame.
 *		This is derived from the control byte(s) but
 *		is an enumerated type for easier handling.
 *
 * Returns:	desc	- Text description such as "I frame" or
 *			  "U frame SABME".
 *
 *		cr	- Command or response?
 *
 *		pf	- P/F - Poll/Final or -1 if not applicable
 *
 *		nr	- N(R) - receive sequence or -1 if not applicable.
 *
 *		ns	- N(S) - send sequence or -1 if not applicable.
 *
 *		frameType - Frame type from enum ax25_frame_type_t.
 *
 *------------------------------------------------------------------*/

func ax25_frame_type_only(this_p *packet_t) ax25_frame_type_t {
	var _, _, _, _, _, frameType = ax25_frame_type(this_p) //nolint:dogsled

	return frameType
}

func ax25_frame_type(this_p *packet_t) (cr cmdres_t, desc string, pf int, nr int, ns int, frameType ax25_frame_type_t) {

	Assert(this_p.magic1 == MAGIC)
	Assert(this_p.magic2 == MAGIC)

	desc = "????"
	cr = cr_11
	pf = -1
	nr = -1
	ns = -1

	// U frames are always one control byte.
	var c = ax25_get_control(this_p)
	if c < 0 {
		desc = "Not AX.25"
		frameType = frame_not_AX25
		return
	}

	/*
	 * I and S frames can have 1 or 2 control bytes and there is
	 * no way to determine this from an isolated frame.  If we have
	 * a link to the peer station this is set properly long before
	 * it is needed.  For eavesdropped frames, guess: an S frame
	 * with an extra byte after the control field, or an I frame
	 * whose supposed second control byte looks like a PID, is
	 * probably modulo 128.
	 */

	if this_p.modulo == 0 && (c&3) == 1 && ax25_get_c2(this_p) != -1 {
		this_p.modulo = modulo_128
	} else if this_p.modulo == 0 && (c&1) == 0 && this_p.frame_data[ax25_get_info_offset(this_p)] == 0xF0 {
		this_p.modulo = modulo_128
	} else if this_p.modulo == 0 && (c&1) == 0 && this_p.frame_data[ax25_get_info_offset(this_p)] == 0x08 { // same for segments
		this_p.modulo = modulo_128
	}

	var c2 int // I & S frames can have second Control byte.
	if this_p.modulo == modulo_128 {
		c2 = ax25_get_c2(this_p)
	}

	var dst_c = this_p.frame_data[AX25_DESTINATION*7+6] & SSID_H_MASK
	var src_c = this_p.frame_data[AX25_SOURCE*7+6] & SSID_H_MASK

	var cr_text string
	var pf_text string

	if dst_c != 0 {
		if src_c != 0 {
			cr = cr_11
			cr_text = "cc=11"
			pf_text = "p/f"
		} else {
			cr = cr_cmd
			cr_text = "cmd"
			pf_text = "p"
		}
	} else {
		if src_c != 0 {
			cr = cr_res
			cr_text = "res"
			pf_text = "f"
		} else {
			cr = cr_00
			cr_text = "cc=00"
			pf_text = "p/f"
		}
	}

	if (c & 1) == 0 {

		// Information 			rrr p sss 0		or	sssssss 0  rrrrrrr p

		if this_p.modulo == modulo_128 {
			ns = (c >> 1) & 0x7f
			pf = c2 & 1
			nr = (c2 >> 1) & 0x7f
		} else {
			ns = (c >> 1) & 7
			pf = (c >> 4) & 1
			nr = (c >> 5) & 7
		}

		desc = fmt.Sprintf("I %s, n(s)=%d, n(r)=%d, %s=%d, pid=0x%02x", cr_text, ns, nr, pf_text, pf, ax25_get_pid(this_p))
		frameType = frame_type_I
		return
	} else if (c & 2) == 0 {

		// Supervisory			rrr p/f ss 0 1		or	0000 ss 0 1  rrrrrrr p/f

		if this_p.modulo == modulo_128 {
			pf = c2 & 1
			nr = (c2 >> 1) & 0x7f
		} else {
			pf = (c >> 4) & 1
			nr = (c >> 5) & 7
		}

		switch (c >> 2) & 3 { //nolint:exhaustive
		case 0:
			desc = fmt.Sprintf("RR %s, n(r)=%d, %s=%d", cr_text, nr, pf_text, pf)
			frameType = (frame_type_S_RR)
			return
		case 1:
			desc = fmt.Sprintf("RNR %s, n(r)=%d, %s=%d", cr_text, nr, pf_text, pf)
			frameType = (frame_type_S_RNR)
			return
		case 2:
			desc = fmt.Sprintf("REJ %s, n(r)=%d, %s=%d", cr_text, nr, pf_text, pf)
			frameType = (frame_type_S_REJ)
			return
		case 3:
			desc = fmt.Sprintf("SREJ %s, n(r)=%d, %s=%d", cr_text, nr, pf_text, pf)
			frameType = (frame_type_S_SREJ)
			return
		}
	} else {

		// Unnumbered			mmm p/f mm 1 1

		pf = (c >> 4) & 1

		switch c & 0xef {

		case 0x6f:
			desc = fmt.Sprintf("SABME %s, %s=%d", cr_text, pf_text, pf)
			frameType = (frame_type_U_SABME)
			return
		case 0x2f:
			desc = fmt.Sprintf("SABM %s, %s=%d", cr_text, pf_text, pf)
			frameType = (frame_type_U_SABM)
			return
		case 0x43:
			desc = fmt.Sprintf("DISC %s, %s=%d", cr_text, pf_text, pf)
			frameType = (frame_type_U_DISC)
			return
		case 0x0f:
			desc = fmt.Sprintf("DM %s, %s=%d", cr_text, pf_text, pf)
			frameType = (frame_type_U_DM)
			return
		case 0x63:
			desc = fmt.Sprintf("UA %s, %s=%d", cr_text, pf_text, pf)
			frameType = (frame_type_U_UA)
			return
		case 0x87:
			desc = fmt.Sprintf("FRMR %s, %s=%d", cr_text, pf_text, pf)
			frameType = (frame_type_U_FRMR)
			return
		case 0x03:
			desc = fmt.Sprintf("UI %s, %s=%d", cr_text, pf_text, pf)
			frameType = (frame_type_U_UI)
			return
		case 0xaf:
			desc = fmt.Sprintf("XID %s, %s=%d", cr_text, pf_text, pf)
			frameType = (frame_type_U_XID)
			return
		case 0xe3:
			desc = fmt.Sprintf("TEST %s, %s=%d", cr_text, pf_text, pf)
			frameType = (frame_type_U_TEST)
			return
		default:
			desc = "U other???"
			frameType = (frame_type_U)
			return
		}
	}

	// Should be unreachable but the compiler doesn't realize that.

	frameType = (frame_not_AX25)
	return

} /* end ax25_frame_type */

/*------------------------------------------------------------------
 *
 * Function:	ax25_is_null_frame
 *
 * Purpose:	Is this packet structure empty?
 *
 * Description:	This is used when we want to wake up the
 *		transmit queue processing thread but don't
 *		want to transmit a frame.
 *
 *------------------------------------------------------------------*/

func ax25_is_null_frame(this_p *packet_t) bool {

	Assert(this_p.magic1 == MAGIC)
	Assert(this_p.magic2 == MAGIC)

	return this_p.frame_len == 0
}

func ax25_get_control(this_p *packet_t) int {
	Assert(this_p.magic1 == MAGIC)
	Assert(this_p.magic2 == MAGIC)

	if this_p.frame_len == 0 {
		return -1
	}

	if this_p.num_addr >= 2 {
		return int(this_p.frame_data[ax25_get_control_offset(this_p)])
	}
	return (-1)
}

func ax25_get_c2(this_p *packet_t) int {
	Assert(this_p.magic1 == MAGIC)
	Assert(this_p.magic2 == MAGIC)

	if this_p.frame_len == 0 {
		return (-1)
	}

	if this_p.num_addr >= 2 {
		var offset2 = ax25_get_control_offset(this_p) + 1

		if offset2 < this_p.frame_len {
			return int(this_p.frame_data[offset2])
		}
		return (-1) /* attempt to go beyond the end of frame. */
	}
	return (-1) /* not AX.25 */
}

/*
 * The Protocol Identifier field appears in I and UI frames only.
 */

func ax25_set_pid(this_p *packet_t, pid byte) {
	Assert(this_p.magic1 == MAGIC)
	Assert(this_p.magic2 == MAGIC)

	// Some applications set this to 0 which is an error.
	// Change 0 to 0xF0 meaning no layer 3 protocol.

	if pid == 0 {
		pid = AX25_PID_NO_LAYER_3
	}

	if this_p.frame_len == 0 {
		return
	}

	var frame_type = ax25_frame_type_only(this_p)

	if frame_type != frame_type_I && frame_type != frame_type_U_UI {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("ax25_set_pid(0x%2x): Packet type is not I or UI.\n", pid)
		return
	}

	if this_p.num_addr >= 2 {
		this_p.frame_data[ax25_get_pid_offset(this_p)] = pid
	}
}

func ax25_get_pid(this_p *packet_t) int {
	Assert(this_p.magic1 == MAGIC)
	Assert(this_p.magic2 == MAGIC)

	if this_p.frame_len == 0 {
		return (-1)
	}

	if this_p.num_addr >= 2 {
		return int(this_p.frame_data[ax25_get_pid_offset(this_p)])
	}
	return (-1)
}

func ax25_get_frame_len(this_p *packet_t) int {
	Assert(this_p.magic1 == MAGIC)
	Assert(this_p.magic2 == MAGIC)

	Assert(this_p.frame_len >= 0 && this_p.frame_len <= AX25_MAX_PACKET_LEN)

	return (this_p.frame_len)
}

func ax25_get_frame_data(this_p *packet_t) []byte {
	Assert(this_p.magic1 == MAGIC)
	Assert(this_p.magic2 == MAGIC)

	return this_p.frame_data[:this_p.frame_len]
}

/*------------------------------------------------------------------
 *
 * Function:	ax25_safe_print
 *
 * Purpose:	Print given string to the console, changing any
 *		non-printable characters to hexadecimal notation so
 *		control characters from a hostile peer can't mess
 *		with the terminal.
 *
 * Inputs:	info		- Bytes to print.
 *
 *		ascii_only	- Treat bytes above 0x7f as non-printable
 *				  rather than attempting UTF-8.
 *
 *------------------------------------------------------------------*/

func ax25_safe_print(info []byte, ascii_only bool) {

	var safe strings.Builder

	for _, ch := range info {

		if ch == '\r' || ch == '\n' {
			safe.WriteByte(ch)
		} else if ch < ' ' || ch == 0x7f || (ascii_only && ch >= 0x80) {
			safe.WriteString(fmt.Sprintf("<0x%02x>", ch))
		} else {
			safe.WriteByte(ch)
		}
	}

	dw_printf("%s", safe.String())
}

/*
 * Byte offsets of the various fields within the frame.
 * The control field directly follows the address block.
 */

func ax25_get_control_offset(this_p *packet_t) int {
	return (this_p.num_addr * 7)
}

func ax25_get_num_control(this_p *packet_t) int {

	var c = this_p.frame_data[ax25_get_control_offset(this_p)]

	if (c & 0x01) == 0 { /* I   xxxx xxx0 */
		if this_p.modulo == 128 {
			return 2
		}
		return 1
	}

	if (c & 0x03) == 1 { /* S   xxxx xx01 */
		if this_p.modulo == 128 {
			return 2
		}
		return 1
	}

	return (1) /* U   xxxx xx11 */
}

func ax25_get_pid_offset(this_p *packet_t) int {
	return (ax25_get_control_offset(this_p) + ax25_get_num_control(this_p))
}

func ax25_get_num_pid(this_p *packet_t) int {

	var c = this_p.frame_data[ax25_get_control_offset(this_p)]

	if (c&0x01) == 0 || /* I   xxxx xxx0 */
		c == 0x03 || c == 0x13 { /* UI  000x 0011 */

		var pid = int(this_p.frame_data[ax25_get_pid_offset(this_p)])
		if pid == AX25_PID_ESCAPE_CHARACTER {
			return (2) /* pid 1111 1111 means another follows. */
		}
		return (1)
	}

	return (0)
}

/*
 * Frame types with an information field:
 *
 *	xxxx xxx0	I
 *	000x 0011	UI
 *	101x 1111	XID
 *	111x 0011	TEST
 *	100x 0111	FRMR
 */

func ax25_get_info_offset(this_p *packet_t) int {
	return ax25_get_control_offset(this_p) + ax25_get_num_control(this_p) + ax25_get_num_pid(this_p)
}
