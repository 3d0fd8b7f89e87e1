package direwolf

/*------------------------------------------------------------------
 *
 * Name:	xid
 *
 * Purpose:	Encode and decode the info field of XID frames.
 *
 * Description:	If we originate the connection, and the other end is
 *		capable of AX.25 version 2.2,
 *
 *		 - We send an XID command frame with our capabilities.
 *		 - the other sends back an XID response, possibly
 *			reducing some values to be acceptable there.
 *		 - Both ends use the values in that response.
 *
 *		If the other end originates the connection,
 *
 *		  - It sends XID command frame with its capabilities.
 *		  - We might decrease some of them to be acceptable.
 *		  - Send XID response.
 *		  - Both ends use values in my response.
 *
 * References:	AX.25 Protocol Spec, sections 4.3.3.7 & 6.3.2.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
)

/*
 * Selective reject variation.
 * In an XID command this is a menu of what we can handle;
 * in a response a single choice from what was offered.
 */

type srej_t int

const (
	srej_none srej_t = iota
	srej_single
	srej_multi
	srej_not_specified
)

type xid_param_s struct {
	full_duplex int

	srej srej_t

	modulo ax25_modulo_t

	i_field_length_rx int /* Maximum info part length, bytes, that I can receive. */

	window_size_rx int /* Maximum window size ("k") that I can handle. */

	ack_timer int /* Acknowledge timer, milliseconds. */

	retries int
}

const FI_Format_Indicator = 0x82
const GI_Group_Identifier = 0x80

const PI_Classes_of_Procedures = 2
const PI_HDLC_Optional_Functions = 3
const PI_I_Field_Length_Rx = 6
const PI_Window_Size_Rx = 8
const PI_Ack_Timer = 9
const PI_Retries = 10

// Forget about the bit order at the physical layer (e.g. HDLC).
// It doesn't matter at all here.  We are dealing with bytes.

// The bit numbers are confusing because the table in the spec (Fig. 4.5)
// starts with 1 for the LSB when everywhere else refers to the LSB as bit 0.

// If we process the two byte "Classes of Procedures" like the other
// multibyte numeric fields, with the more significant byte first,
// we end up with the bit masks below.

const PV_Classes_Procedures_Balanced_ABM = 0x0100
const PV_Classes_Procedures_Half_Duplex = 0x2000
const PV_Classes_Procedures_Full_Duplex = 0x4000

// Same idea for the three byte "HDLC Optional Functions."

const PV_HDLC_Optional_Functions_REJ_cmd_resp = 0x020000
const PV_HDLC_Optional_Functions_SREJ_cmd_resp = 0x040000
const PV_HDLC_Optional_Functions_Extended_Address = 0x800000

const PV_HDLC_Optional_Functions_Modulo_8 = 0x000400
const PV_HDLC_Optional_Functions_Modulo_128 = 0x000800
const PV_HDLC_Optional_Functions_TEST_cmd_resp = 0x002000
const PV_HDLC_Optional_Functions_16_bit_FCS = 0x008000

const PV_HDLC_Optional_Functions_Multi_SREJ_cmd_resp = 0x000020
const PV_HDLC_Optional_Functions_Segmenter = 0x000040

const PV_HDLC_Optional_Functions_Synchronous_Tx = 0x000002

/*-------------------------------------------------------------------
 *
 * Name:        xid_parse
 *
 * Purpose:    	Decode information part of XID frame into individual values.
 *
 * Inputs:	info		- Information part of the frame.  Could be empty.
 *
 * Returns:	result		- Structure with extracted values.
 *				  Fields not present in the frame are set to
 *				  G_UNKNOWN (or the enum equivalent) and the
 *				  caller deals with it.
 *
 *		desc		- Text description for troubleshooting.
 *
 *		status		- 1 for mostly successful (with possible error
 *				  messages), 0 for failure.
 *
 * Description:	6.3.2 "The receipt of an XID response from the other station
 *		establishes that both stations are using AX.25 version
 *		2.2 or higher and enables the use of the segmenter/reassembler
 *		and selective reject."
 *
 *--------------------------------------------------------------------*/

func xid_parse(info []byte) (xid_param_s, string, int) {

	// The AX.25 v2.2 protocol spec says, for most of these,
	//	"If this field is not present, the current values are retained."

	var result xid_param_s

	result.full_duplex = G_UNKNOWN
	result.srej = srej_not_specified
	result.modulo = modulo_unknown
	result.i_field_length_rx = G_UNKNOWN
	result.window_size_rx = G_UNKNOWN
	result.ack_timer = G_UNKNOWN
	result.retries = G_UNKNOWN

	/* Information field is optional but that seems pretty lame. */

	if len(info) == 0 {
		return result, "", 1
	}

	var info_len = len(info)
	var i = 0

	if info[i] != FI_Format_Indicator {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("XID error: First byte of info field should be Format Indicator, %02x.\n", FI_Format_Indicator)
		return result, "", 0
	}
	i++

	if info[i] != GI_Group_Identifier {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("XID error: Second byte of info field should be Group Indicator, %d.\n", GI_Group_Identifier)
		return result, "", 0
	}
	i++

	var group_len = int(info[i])
	i++
	group_len = (group_len << 8) + int(info[i])
	i++

	var desc string

	for i < 4+group_len && i < info_len {

		var pind = info[i]
		i++

		var plen = info[i]
		i++

		if plen < 1 || plen > 4 {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("XID error: Bad parameter length %d.\n", plen)
			return result, desc, 1 // got this far.
		}

		var pval = 0
		for j := byte(0); j < plen; j++ {
			pval = (pval << 8) + int(info[i])
			i++
		}

		switch pind {

		case PI_Classes_of_Procedures:

			// Don't complain when Balanced ABM is missing.
			// Some implementations don't set it.

			if pval&PV_Classes_Procedures_Half_Duplex > 0 && (pval&PV_Classes_Procedures_Full_Duplex) == 0 {
				result.full_duplex = 0
				desc += "Half-Duplex "
			} else if pval&PV_Classes_Procedures_Full_Duplex > 0 && (pval&PV_Classes_Procedures_Half_Duplex) == 0 {
				result.full_duplex = 1
				desc += "Full-Duplex "
			} else {
				result.full_duplex = 0
			}

		case PI_HDLC_Optional_Functions:

			// Pick highest of those offered.

			if pval&PV_HDLC_Optional_Functions_REJ_cmd_resp > 0 {
				desc += "REJ "
			}
			if pval&PV_HDLC_Optional_Functions_SREJ_cmd_resp > 0 {
				desc += "SREJ "
			}
			if pval&PV_HDLC_Optional_Functions_Multi_SREJ_cmd_resp > 0 {
				desc += "Multi-SREJ "
			}

			if pval&PV_HDLC_Optional_Functions_Multi_SREJ_cmd_resp > 0 {
				result.srej = srej_multi
			} else if pval&PV_HDLC_Optional_Functions_SREJ_cmd_resp > 0 {
				result.srej = srej_single
			} else if pval&PV_HDLC_Optional_Functions_REJ_cmd_resp > 0 {
				result.srej = srej_none
			} else {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("XID error: Expected at least one of REJ, SREJ, Multi-SREJ to be set.\n")
				result.srej = srej_none
			}

			if (pval&PV_HDLC_Optional_Functions_Modulo_8) > 0 && (pval&PV_HDLC_Optional_Functions_Modulo_128) == 0 {
				result.modulo = modulo_8
				desc += "modulo-8 "
			} else if (pval&PV_HDLC_Optional_Functions_Modulo_128) > 0 && (pval&PV_HDLC_Optional_Functions_Modulo_8) == 0 {
				result.modulo = modulo_128
				desc += "modulo-128 "
			} else {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("XID error: Expected one of Modulo 8 or 128 be set.\n")
			}

			if (pval & PV_HDLC_Optional_Functions_TEST_cmd_resp) == 0 {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("XID error: Expected TEST cmd/resp to be set.\n")
			}

			if (pval & PV_HDLC_Optional_Functions_16_bit_FCS) == 0 {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("XID error: Expected 16 bit FCS to be set.\n")
			}

			if (pval & PV_HDLC_Optional_Functions_Synchronous_Tx) == 0 {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("XID error: Expected Synchronous Tx to be set.\n")
			}

		case PI_I_Field_Length_Rx:

			result.i_field_length_rx = pval / 8

			desc += fmt.Sprintf("I-Field-Length-Rx=%d ", result.i_field_length_rx)

			if pval&0x7 > 0 {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("XID error: I Field Length Rx, %d, is not a whole number of bytes.\n", pval)
			}

		case PI_Window_Size_Rx:

			result.window_size_rx = pval

			desc += fmt.Sprintf("Window-Size-Rx=%d ", result.window_size_rx)

			if pval < 1 || pval > 127 {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("XID error: Window Size Rx, %d, is not in range of 1 thru 127.\n", pval)
				result.window_size_rx = 127
				// Let the caller deal with modulo 8 consideration.
			}

		case PI_Ack_Timer:
			result.ack_timer = pval

			desc += fmt.Sprintf("Ack-Timer=%d ", result.ack_timer)

		case PI_Retries:
			result.retries = pval

			desc += fmt.Sprintf("Retries=%d ", result.retries)

		default: // Ignore anything we don't recognize.
		}
	}

	if i != info_len {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("XID error: Frame / Group Length mismatch.\n")
	}

	return result, desc, 1

} /* end xid_parse */

/*-------------------------------------------------------------------
 *
 * Name:        xid_encode
 *
 * Purpose:    	Encode the information part of an XID frame.
 *
 * Inputs:	param.
 *			full_duplex	- As command, am I capable of full duplex operation?
 *					  When a response, are we both?
 *
 * 			srej		- Level of selective reject.
 *					  As command, offer a menu of what I can handle.
 *					  As response, a single choice from what was offered.
 *
 *			modulo		- 8 or 128.
 *
 *			i_field_length_rx - Maximum number of bytes I can handle in info part.
 *					    Default is 256.  Up to 8191 will fit into the field.
 *					    Use G_UNKNOWN to omit this.
 *
 *			window_size_rx	- Maximum window size ("k") that I can handle.
 *					  Defaults are 4 for modulo 8 and 32 for modulo 128.
 *
 *			ack_timer	- Acknowledge timer in milliseconds.
 *					  Default is 3000.  Use G_UNKNOWN to omit this.
 *
 *			retries		- Allows negotiation of retries.
 *					  Default is 10.  Use G_UNKNOWN to omit this.
 *
 *		cr	- Is it a command or response?
 *
 * Returns:	info	- Information part of XID frame.
 *			  Does not include the control byte.
 *			  At most 27 bytes with everything present.
 *
 * Description:	6.3.2  "Parameter negotiation occurs at any time. It is accomplished by sending
 *		the XID command frame and receiving the XID response frame. Implementations of
 *		AX.25 prior to version 2.2 respond to an XID command frame with a FRMR response
 *		frame. The TNC receiving the FRMR uses a default set of parameters compatible
 *		with previous versions of AX.25."
 *
 *		The XID command offers up a menu of all the acceptable choices,
 *		e.g. REJ, SREJ, Multi-SREJ, with one or more bits set.  The XID
 *		response sets a single bit which is the desired choice from
 *		among those offered.
 *
 *--------------------------------------------------------------------*/

func xid_encode(param *xid_param_s, cr cmdres_t) []byte {

	var info [40]byte
	var i = 0

	info[i] = FI_Format_Indicator
	i++
	info[i] = GI_Group_Identifier
	i++
	info[i] = 0
	i++

	var m byte = 4 // classes of procedures
	m += 5         // HDLC optional features
	if param.i_field_length_rx != G_UNKNOWN {
		m += 4
	}
	if param.window_size_rx != G_UNKNOWN {
		m += 3
	}
	if param.ack_timer != G_UNKNOWN {
		m += 4
	}
	if param.retries != G_UNKNOWN {
		m += 3
	}

	info[i] = m // 0x17 if all present.
	i++

	// "Classes of Procedures" has half / full duplex.

	// We always send this.

	info[i] = PI_Classes_of_Procedures
	i++
	info[i] = 2
	i++

	var x = PV_Classes_Procedures_Balanced_ABM

	if param.full_duplex == 1 {
		x |= PV_Classes_Procedures_Full_Duplex
	} else { // includes G_UNKNOWN
		x |= PV_Classes_Procedures_Half_Duplex
	}

	info[i] = byte(x>>8) & 0xff
	i++
	info[i] = byte(x) & 0xff
	i++

	// "HDLC Optional Functions" contains REJ/SREJ & modulo 8/128.

	// We always send this.
	// Watch out for unknown values and do something reasonable.

	info[i] = PI_HDLC_Optional_Functions
	i++
	info[i] = 3
	i++

	x = PV_HDLC_Optional_Functions_Extended_Address |
		PV_HDLC_Optional_Functions_TEST_cmd_resp |
		PV_HDLC_Optional_Functions_16_bit_FCS |
		PV_HDLC_Optional_Functions_Synchronous_Tx

	if cr == cr_cmd {
		// offer a "menu" of acceptable choices.  i.e. 1, 2 or 3 bits set.
		switch param.srej {
		default: // Includes srej_none
			x |= PV_HDLC_Optional_Functions_REJ_cmd_resp
		case srej_single:
			x |= PV_HDLC_Optional_Functions_REJ_cmd_resp |
				PV_HDLC_Optional_Functions_SREJ_cmd_resp
		case srej_multi:
			x |= PV_HDLC_Optional_Functions_REJ_cmd_resp |
				PV_HDLC_Optional_Functions_SREJ_cmd_resp |
				PV_HDLC_Optional_Functions_Multi_SREJ_cmd_resp
		}
	} else {
		// for response, set only a single bit.
		switch param.srej {
		default: // Includes srej_none
			x |= PV_HDLC_Optional_Functions_REJ_cmd_resp
		case srej_single:
			x |= PV_HDLC_Optional_Functions_SREJ_cmd_resp
		case srej_multi:
			x |= PV_HDLC_Optional_Functions_Multi_SREJ_cmd_resp
		}
	}

	if param.modulo == modulo_128 {
		x |= PV_HDLC_Optional_Functions_Modulo_128
	} else { // includes modulo_8 and modulo_unknown
		x |= PV_HDLC_Optional_Functions_Modulo_8
	}

	info[i] = byte(x>>16) & 0xff
	i++
	info[i] = byte(x>>8) & 0xff
	i++
	info[i] = byte(x) & 0xff
	i++

	// The rest are skipped if undefined values.

	// "I Field Length Rx" - max I field length acceptable to me.
	// This is in bits.  8191 would be the max number of bytes to fit in the field.

	if param.i_field_length_rx != G_UNKNOWN {
		info[i] = byte(PI_I_Field_Length_Rx)
		i++
		info[i] = 2
		i++
		x = param.i_field_length_rx * 8
		info[i] = byte(x>>8) & 0xff
		i++
		info[i] = byte(x) & 0xff
		i++
	}

	// "Window Size Rx"

	if param.window_size_rx != G_UNKNOWN {
		info[i] = byte(PI_Window_Size_Rx)
		i++
		info[i] = 1
		i++
		info[i] = byte(param.window_size_rx)
		i++
	}

	// "Ack Timer" milliseconds.  We could handle up to 65535 here.

	if param.ack_timer != G_UNKNOWN {
		info[i] = byte(PI_Ack_Timer)
		i++
		info[i] = 2
		i++
		info[i] = byte(param.ack_timer>>8) & 0xff
		i++
		info[i] = byte(param.ack_timer) & 0xff
		i++
	}

	// "Retries."

	if param.retries != G_UNKNOWN {
		info[i] = byte(PI_Retries)
		i++
		info[i] = 1
		i++
		info[i] = byte(param.retries)
		i++
	}

	var result = make([]byte, i)
	copy(result, info[:i])

	return result
} /* end xid_encode */
