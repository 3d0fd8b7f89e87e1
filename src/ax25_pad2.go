package direwolf

/*------------------------------------------------------------------
 *
 * Name:	ax25_pad2
 *
 * Purpose:	Packet assembler and disassembler, part 2.
 *
 *		The original ax25_pad was written with UI frames in
 *		mind.  Here we add constructors for the general cases
 *		of AX.25 frames needed by connected mode.
 *
 *		A U frame always has one control byte.  When using
 *		modulo 128 sequence numbers, the I and S frames have a
 *		second control byte allowing 7 bit sequence fields
 *		instead of 3 bit fields.
 *
 *		Only these frame types can have an information part:
 *			- I
 *			- UI
 *			- XID
 *			- TEST
 *			- FRMR
 *			- SREJ (list of additional N(R) to resend)
 *
 * Constructors:
 *		ax25_u_frame		- Construct a U frame.
 *		ax25_s_frame		- Construct a S frame.
 *		ax25_i_frame		- Construct a I frame.
 *
 *------------------------------------------------------------------*/

/*------------------------------------------------------------------------------
 *
 * Name:	ax25_u_frame
 *
 * Purpose:	Construct a U frame.
 *
 * Input:	addrs		- Array of addresses.
 *
 *		num_addr	- Number of addresses, range 2 .. 10.
 *
 *		cr		- cr_cmd for a command frame, cr_res for a response frame.
 *
 *		ftype		- frame_type_U_SABME, _SABM, _DISC, _DM, _UA,
 *				  _FRMR, _UI, _XID or _TEST.
 *
 *		pf		- Poll/Final flag.
 *
 *		pid		- Protocol ID.  >>> Used ONLY for the UI type. <<<
 *				  Normally 0xf0 meaning no layer 3.
 *
 *		info		- Info field.  Allowed only for UI, XID, TEST, FRMR.
 *
 * Returns:	Pointer to new packet object.
 *
 *------------------------------------------------------------------------------*/

func ax25_u_frame(addrs [AX25_MAX_ADDRS]string, num_addr int, cr cmdres_t, ftype ax25_frame_type_t, pf int, pid int, info []byte) *packet_t {

	var this_p = ax25_new()

	this_p.modulo = 0

	if !set_addrs(this_p, addrs, num_addr, cr) {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Internal error in ax25_u_frame: Could not set addresses for U frame.\n")
		ax25_delete(this_p)
		return (nil)
	}

	var ctrl int
	var t cmdres_t  // cr_cmd = must be cmd, cr_res = must be response, cr_00 = either.
	var info_ok = false

	switch ftype {
	case frame_type_U_SABME:
		ctrl = 0x6f
		t = cr_cmd
	case frame_type_U_SABM:
		ctrl = 0x2f
		t = cr_cmd
	case frame_type_U_DISC:
		ctrl = 0x43
		t = cr_cmd
	case frame_type_U_DM:
		ctrl = 0x0f
		t = cr_res
	case frame_type_U_UA:
		ctrl = 0x63
		t = cr_res
	case frame_type_U_FRMR:
		ctrl = 0x87
		t = cr_res
		info_ok = true
	case frame_type_U_UI:
		ctrl = 0x03
		t = cr_00
		info_ok = true
	case frame_type_U_XID:
		ctrl = 0xaf
		t = cr_00
		info_ok = true
	case frame_type_U_TEST:
		ctrl = 0xe3
		t = cr_00
		info_ok = true
	default:
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Internal error in ax25_u_frame: Invalid ftype %d for U frame.\n", ftype)
		ax25_delete(this_p)
		return (nil)
	}

	if pf != 0 {
		ctrl |= 0x10
	}

	if t != cr_00 && cr != t {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Internal error in ax25_u_frame: U frame, cr is %d but must be %d. ftype=%d\n", cr, t, ftype)
	}

	this_p.frame_data[this_p.frame_len] = byte(ctrl)
	this_p.frame_len++

	if ftype == frame_type_U_UI {

		// Definitely don't want pid value of 0 (not in valid list)
		// or 0xff (which means more bytes follow).

		if pid <= 0 || pid == 0xff {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Internal error in ax25_u_frame: U frame, Invalid pid value 0x%02x.\n", pid)
			pid = AX25_PID_NO_LAYER_3
		}
		this_p.frame_data[this_p.frame_len] = byte(pid)
		this_p.frame_len++
	}

	if info_ok {
		if len(info) > 0 {
			if len(info) > AX25_MAX_INFO_LEN {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("Internal error in ax25_u_frame: U frame, Invalid information field length %d.\n", len(info))
				info = info[:AX25_MAX_INFO_LEN]
			}
			copy(this_p.frame_data[this_p.frame_len:], info)
			this_p.frame_len += len(info)
		}
	} else if len(info) > 0 {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Internal error in ax25_u_frame: Info part not allowed for U frame type.\n")
	}

	this_p.frame_data[this_p.frame_len] = 0

	Assert(this_p.magic1 == MAGIC)
	Assert(this_p.magic2 == MAGIC)

	return (this_p)
} /* end ax25_u_frame */

/*------------------------------------------------------------------------------
 *
 * Name:	ax25_s_frame
 *
 * Purpose:	Construct an S frame.
 *
 * Input:	addrs		- Array of addresses.
 *
 *		num_addr	- Number of addresses, range 2 .. 10.
 *
 *		cr		- cr_cmd for a command frame, cr_res for a response frame.
 *
 *		ftype		- frame_type_S_RR, _RNR, _REJ or _SREJ.
 *
 *		modulo		- 8 or 128.  Determines if we have 1 or 2 control bytes.
 *
 *		nr		- N(R), next expected send sequence from the peer.
 *
 *		pf		- Poll/Final flag.
 *
 *		info		- Info field.  Allowed only for SREJ.
 *
 * Returns:	Pointer to new packet object.
 *
 *------------------------------------------------------------------------------*/

func ax25_s_frame(
	addrs [AX25_MAX_ADDRS]string,
	num_addr int,
	cr cmdres_t,
	ftype ax25_frame_type_t,
	modulo ax25_modulo_t,
	nr int,
	pf int,
	info []byte,
) *packet_t {

	var this_p = ax25_new()

	if !set_addrs(this_p, addrs, num_addr, cr) {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Internal error in ax25_s_frame: Could not set addresses for S frame.\n")
		ax25_delete(this_p)
		return (nil)
	}

	if modulo != 8 && modulo != 128 {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Internal error in ax25_s_frame: Invalid modulo %d for S frame.\n", modulo)
		modulo = 8
	}
	this_p.modulo = modulo

	if nr < 0 || nr >= int(modulo) {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Internal error in ax25_s_frame: Invalid N(R) %d for S frame.\n", nr)
		nr &= int(modulo - 1)
	}

	// Erratum: The AX.25 spec is not clear about whether SREJ should be command, response, or both.
	// The underlying X.25 spec clearly says it is response only.  Let's go with that.

	if ftype == frame_type_S_SREJ && cr != cr_res {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Internal error in ax25_s_frame: SREJ must be response.\n")
	}

	var ctrl int
	switch ftype {
	case frame_type_S_RR:
		ctrl = 0x01
	case frame_type_S_RNR:
		ctrl = 0x05
	case frame_type_S_REJ:
		ctrl = 0x09
	case frame_type_S_SREJ:
		ctrl = 0x0d
	default:
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Internal error in ax25_s_frame: Invalid ftype %d for S frame.\n", ftype)
		ax25_delete(this_p)
		return (nil)
	}

	if modulo == 8 {
		if pf != 0 {
			ctrl |= 0x10
		}
		ctrl |= nr << 5
		this_p.frame_data[this_p.frame_len] = byte(ctrl)
		this_p.frame_len++
	} else {
		this_p.frame_data[this_p.frame_len] = byte(ctrl)
		this_p.frame_len++

		var ctrl2 = pf & 1
		ctrl2 |= nr << 1
		this_p.frame_data[this_p.frame_len] = byte(ctrl2)
		this_p.frame_len++
	}

	if ftype == frame_type_S_SREJ {
		if len(info) > 0 {
			if len(info) > AX25_MAX_INFO_LEN {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("Internal error in ax25_s_frame: SREJ frame, Invalid information field length %d.\n", len(info))
				info = info[:AX25_MAX_INFO_LEN]
			}
			copy(this_p.frame_data[this_p.frame_len:], info)
			this_p.frame_len += len(info)
		}
	} else if len(info) > 0 {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Internal error in ax25_s_frame: Info part not allowed for RR, RNR, REJ frame.\n")
	}

	this_p.frame_data[this_p.frame_len] = 0

	Assert(this_p.magic1 == MAGIC)
	Assert(this_p.magic2 == MAGIC)

	return (this_p)

} /* end ax25_s_frame */

/*------------------------------------------------------------------------------
 *
 * Name:	ax25_i_frame
 *
 * Purpose:	Construct an I frame.
 *
 * Input:	addrs		- Array of addresses.
 *
 *		num_addr	- Number of addresses, range 2 .. 10.
 *
 *		cr		- cr_cmd for a command frame, cr_res for a response frame.
 *
 *		modulo		- 8 or 128.
 *
 *		nr		- N(R), next expected send sequence from the peer.
 *
 *		ns		- N(S), send sequence of this frame.
 *
 *		pf		- Poll/Final flag.
 *
 *		pid		- Protocol ID.  Normally 0xf0 meaning no layer 3.
 *				  Could be other values for NET/ROM, segments, etc.
 *
 *		info		- Info field.
 *
 * Returns:	Pointer to new packet object.
 *
 *------------------------------------------------------------------------------*/

func ax25_i_frame(
	addrs [AX25_MAX_ADDRS]string,
	num_addr int,
	cr cmdres_t,
	modulo ax25_modulo_t,
	nr int,
	ns int,
	pf int,
	pid int,
	info []byte,
) *packet_t {

	var this_p = ax25_new()

	if !set_addrs(this_p, addrs, num_addr, cr) {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Internal error in ax25_i_frame: Could not set addresses for I frame.\n")
		ax25_delete(this_p)
		return (nil)
	}

	if modulo != 8 && modulo != 128 {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Internal error in ax25_i_frame: Invalid modulo %d for I frame.\n", modulo)
		modulo = 8
	}
	this_p.modulo = modulo

	if nr < 0 || nr >= int(modulo) {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Internal error in ax25_i_frame: Invalid N(R) %d for I frame.\n", nr)
		nr &= int(modulo - 1)
	}

	if ns < 0 || ns >= int(modulo) {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Internal error in ax25_i_frame: Invalid N(S) %d for I frame.\n", ns)
		ns &= int(modulo - 1)
	}

	var ctrl int
	if modulo == 8 {
		ctrl = (nr << 5) | (ns << 1)
		if pf != 0 {
			ctrl |= 0x10
		}
		this_p.frame_data[this_p.frame_len] = byte(ctrl)
		this_p.frame_len++
	} else {
		ctrl = ns << 1
		this_p.frame_data[this_p.frame_len] = byte(ctrl)
		this_p.frame_len++

		var ctrl2 = nr << 1
		if pf != 0 {
			ctrl2 |= 0x01
		}
		this_p.frame_data[this_p.frame_len] = byte(ctrl2)
		this_p.frame_len++
	}

	// Definitely don't want pid value of 0 (not in valid list)
	// or 0xff (which means more bytes follow).

	if pid <= 0 || pid == 0xff {
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("Warning: Client application provided invalid PID value, 0x%02x, for I frame.\n", pid)
		pid = AX25_PID_NO_LAYER_3
	}
	this_p.frame_data[this_p.frame_len] = byte(pid)
	this_p.frame_len++

	if len(info) > 0 {
		if len(info) > AX25_MAX_INFO_LEN {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Internal error in ax25_i_frame: I frame, Invalid information field length %d.\n", len(info))
			info = info[:AX25_MAX_INFO_LEN]
		}
		copy(this_p.frame_data[this_p.frame_len:], info)
		this_p.frame_len += len(info)
	}

	this_p.frame_data[this_p.frame_len] = 0

	Assert(this_p.magic1 == MAGIC)
	Assert(this_p.magic2 == MAGIC)

	return (this_p)

} /* end ax25_i_frame */

/*------------------------------------------------------------------------------
 *
 * Name:	set_addrs
 *
 * Purpose:	Set address fields at the beginning of a new frame.
 *
 * Input:	pp		- Packet object.  Must still be empty.
 *
 *		addrs		- Array of addresses.  Same order as in frame.
 *
 *		num_addr	- Number of addresses, range 2 .. 10.
 *
 *		cr		- cr_cmd for a command frame, cr_res for a response frame.
 *
 * Output:	pp.frame_data	- 7 bytes for each address.
 *		pp.frame_len	- num_addr * 7
 *		pp.num_addr	- num_addr
 *
 * Returns:	True for success.  False for failure.
 *
 *------------------------------------------------------------------------------*/

func set_addrs(pp *packet_t, addrs [AX25_MAX_ADDRS]string, num_addr int, cr cmdres_t) bool {

	Assert(pp.frame_len == 0)
	Assert(cr == cr_cmd || cr == cr_res)

	if num_addr < AX25_MIN_ADDRS || num_addr > AX25_MAX_ADDRS {
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("INTERNAL ERROR: set_addrs, num_addr = %d\n", num_addr)
		return false
	}

	for n := 0; n < num_addr; n++ {

		var oaddr, ssid, _, ok = ax25_parse_addr(n, addrs[n], 1)

		if !ok {
			return false
		}

		// Fill in address, blank padded and shifted left one bit.

		for i := 0; i < 6; i++ {
			pp.frame_data[n*7+i] = ' ' << 1
		}
		for i, c := range oaddr {
			if i >= 6 {
				break
			}
			pp.frame_data[n*7+i] = byte(c) << 1
		}

		// Fill in SSID.

		pp.frame_data[n*7+6] = byte(0x60 | ((ssid & 0xf) << 1))

		// Command / response flag.

		switch n {
		case AX25_DESTINATION:
			if cr == cr_cmd {
				pp.frame_data[n*7+6] |= 0x80
			}
		case AX25_SOURCE:
			if cr == cr_res {
				pp.frame_data[n*7+6] |= 0x80
			}
		}
	}

	pp.frame_len = num_addr * 7
	pp.num_addr = num_addr

	SET_LAST_ADDR_FLAG(pp)

	return true

} /* end set_addrs */
