package direwolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Provide service to other applications via "AGW TCPIP Socket Interface".
 *
 * Description:	This provides a TCP socket for communication with a client application.
 *		It implements a subset of the AGW socket interface.
 *
 *		Commands from application recognized:
 *
 *			'R'	Request for version number.
 *
 *			'G'	Ask about radio ports.
 *
 *			'g'	Capabilities of a port.
 *
 *			'k'	Ask to start receiving RAW AX25 frames.
 *
 *			'm'	Ask to start receiving Monitor AX25 frames.
 *				Enables sending of U, I, S, and T messages to client app.
 *
 *			'V'	Transmit UI data frame.
 *
 *			'K'	Transmit raw AX.25 frame.
 *
 *			'X'	Register CallSign
 *
 *			'x'	Unregister CallSign
 *
 *			'y'	Ask Outstanding frames waiting on a Port
 *
 *			'Y'	How many frames waiting for transmit for a particular station
 *
 *			'C'	Connect, Start an AX.25 Connection
 *
 *			'v'	Connect VIA, Start an AX.25 circuit thru digipeaters
 *
 *			'c'	Connection with non-standard PID
 *
 *			'D'	Send Connected Data
 *
 *			'd'	Disconnect, Terminate an AX.25 Connection
 *
 *			A message is printed if any others are received.
 *
 *		Messages sent to client application:
 *
 *			'R'	Reply to Request for version number.
 *
 *			'G'	Reply to Ask about radio ports.
 *
 *			'g'	Reply to capabilities of a port.
 *
 *			'K'	Received AX.25 frame in raw format.
 *				(Enabled with 'k' command.)
 *
 *			'U'	Received AX.25 "UI" frames in monitor format.
 *				(Enabled with 'm' command.)
 *
 *			'I'	Received AX.25 "I" frames in monitor format.
 *				(Enabled with 'm' command.)
 *
 *			'S'	Received AX.25 "S" and "U" (other than UI) frames in monitor format.
 *				(Enabled with 'm' command.)
 *
 *			'T'	Own Transmitted AX.25 frames in monitor format.
 *				(Enabled with 'm' command.)
 *
 *			'y'	Outstanding frames waiting on a Port
 *
 *			'Y'	How many frames waiting for transmit for a particular station
 *
 *			'C'	AX.25 Connection Received
 *
 *			'D'	Connected AX.25 Data
 *
 *			'd'	Disconnected
 *
 * References:	AGWPE TCP/IP API Tutorial
 *		http://uz7ho.org.ua/includes/agwpeapi.htm
 *
 *		It has disappeared from the original location but you can find it here:
 *		https://web.archive.org/web/20130807113413/http:/uz7ho.org.ua/includes/agwpeapi.htm
 *		https://www.on7lds.net/42/sites/default/files/AGWPEAPI.HTM
 *
 *---------------------------------------------------------------*/

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"
)

var client_sock [MAX_NET_CLIENTS]net.Conn

/* Socket for */
/* communication with client application. */

var enable_send_raw_to_client [MAX_NET_CLIENTS]bool

/* Should we send received packets to client app in raw form? */
/* Note that it starts as false for a new connection. */
/* the client app must send a command to enable this. */

var enable_send_monitor_to_client [MAX_NET_CLIENTS]bool

/* Should we send received packets to client app in monitor form? */
/* Note that it starts as false for a new connection. */
/* the client app must send a command to enable this. */

const (
	FROM_CLIENT fromto_t = 2
	TO_CLIENT   fromto_t = 3
)

var FROMTO_PREFIX = map[fromto_t]string{
	FROM_TNC:    "<<<",
	TO_TNC:      ">>>",
	FROM_CLIENT: "<<<",
	TO_CLIENT:   ">>>",
}

/*-------------------------------------------------------------------
 *
 * Name:        debug_print
 *
 * Purpose:     Print message to/from client for debugging.
 *
 * Inputs:	fromto		- Direction of message.
 *		client		- client number, 0 .. MAX_NET_CLIENTS-1
 *		pmsg		- Address of the message block.
 *
 *--------------------------------------------------------------------*/

var debug_client int = 0 /* Debug option: Print information flowing from and to client. */

func server_set_debug(n int) {
	debug_client = n
}

func debug_print(fromto fromto_t, client int, pmsg *AGWPEMessage) {
	var direction, datakind string

	switch fromto {
	case FROM_CLIENT:
		direction = "from" /* from the client application */

		switch pmsg.Header.DataKind {
		case 'P':
			datakind = "Application Login"
		case 'X':
			datakind = "Register CallSign"
		case 'x':
			datakind = "Unregister CallSign"
		case 'G':
			datakind = "Ask Port Information"
		case 'm':
			datakind = "Enable Reception of Monitoring Frames"
		case 'R':
			datakind = "AGWPE Version Info"
		case 'g':
			datakind = "Ask Port Capabilities"
		case 'H':
			datakind = "Callsign Heard on a Port"
		case 'y':
			datakind = "Ask Outstanding frames waiting on a Port"
		case 'Y':
			datakind = "Ask Outstanding frames waiting for a connection"
		case 'M':
			datakind = "Send UNPROTO Information"
		case 'C':
			datakind = "Connect, Start an AX.25 Connection"
		case 'D':
			datakind = "Send Connected Data"
		case 'd':
			datakind = "Disconnect, Terminate an AX.25 Connection"
		case 'v':
			datakind = "Connect VIA, Start an AX.25 circuit thru digipeaters"
		case 'V':
			datakind = "Send UNPROTO VIA"
		case 'c':
			datakind = "Non-Standard Connections, Connection with PID"
		case 'K':
			datakind = "Send data in raw AX.25 format"
		case 'k':
			datakind = "Activate reception of Frames in raw format"
		default:
			datakind = "**INVALID**"
		}

	case TO_CLIENT:
		direction = "to"

		switch pmsg.Header.DataKind {
		case 'R':
			datakind = "Version Number"
		case 'X':
			datakind = "Callsign Registration"
		case 'G':
			datakind = "Port Information"
		case 'g':
			datakind = "Capabilities of a Port"
		case 'y':
			datakind = "Frames Outstanding on a Port"
		case 'Y':
			datakind = "Frames Outstanding on a Connection"
		case 'H':
			datakind = "Heard Stations on a Port"
		case 'C':
			datakind = "AX.25 Connection Received"
		case 'D':
			datakind = "Connected AX.25 Data"
		case 'd':
			datakind = "Disconnected"
		case 'I':
			datakind = "Monitored Connected Information"
		case 'S':
			datakind = "Monitored Supervisory Information"
		case 'U':
			datakind = "Monitored Unproto Information"
		case 'T':
			datakind = "Monitoring Own Information"
		case 'K':
			datakind = "Monitored Information in Raw Format"
		default:
			datakind = "**INVALID**"
		}
	default:
		panic(fmt.Sprintf("Unknown fromto: %v", fromto))
	}

	text_color_set(DW_COLOR_DEBUG)
	dw_printf("\n")

	dw_printf("%s %s %s AGWPE client application %d\n",
		FROMTO_PREFIX[fromto], datakind, direction, client)

	dw_printf("\tportx = %d, datakind = '%c', pid = 0x%02x\n", pmsg.Header.Portx, pmsg.Header.DataKind, pmsg.Header.PID)
	dw_printf("\tcall_from = \"%s\", call_to = \"%s\"\n", ByteArrayToString(pmsg.Header.CallFrom[:]), ByteArrayToString(pmsg.Header.CallTo[:]))
	dw_printf("\tdata_len = %d, user_reserved = %d, data =\n", pmsg.Header.DataLen, pmsg.Header.UserReserved)

	hex_dump(pmsg.Data[:pmsg.Header.DataLen])
}

/*-------------------------------------------------------------------
 *
 * Name:        server_init
 *
 * Purpose:     Set up a server to listen for connection requests from
 *		an application such as a connected-mode terminal.
 *
 * Inputs:	mc.agwpe_port	- TCP port for server.
 *				  Main program has default of 8000 but allows
 *				  an alternative to be specified on the command line
 *
 *				0 means disable.
 *
 * Description:	This starts at least two threads:
 *		  *  one to listen for a connection from client app.
 *		  *  one or more to listen for commands from client app.
 *		so the main application doesn't block while we wait for these.
 *
 *--------------------------------------------------------------------*/

func server_init(audio_config_p *audio_s, mc *misc_config_s) {
	var server_port = mc.agwpe_port /* Usually 8000 but can be changed. */

	save_audio_config_p = audio_config_p

	for client := 0; client < MAX_NET_CLIENTS; client++ {
		enable_send_raw_to_client[client] = false
		enable_send_monitor_to_client[client] = false
	}

	if server_port == 0 {
		text_color_set(DW_COLOR_INFO)
		dw_printf("Disabled AGW network client port.\n")

		return
	}

	/*
	 * This waits for a client to connect and sets an available client_sock[n].
	 */
	go server_connect_listen_thread(server_port)

	/*
	 * These read messages from client when client_sock[n] is valid.
	 * Currently we start up a separate thread for each potential connection.
	 * Possible later refinement.  Start one now, others only as needed.
	 */
	for client := 0; client < MAX_NET_CLIENTS; client++ {
		go cmd_listen_thread(client)
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        server_connect_listen_thread
 *
 * Purpose:     Wait for a connection request from an application.
 *
 * Inputs:	server_port	- TCP port for server.
 *
 * Outputs:	client_sock	- File descriptor for communicating with client app.
 *
 * Description:	Wait for connection request from client and establish
 *		communication.
 *		Note that the client can go away and come back again and
 *		re-establish communication without restarting this application.
 *
 *--------------------------------------------------------------------*/

func server_connect_listen_thread(server_port int) {
	var listener, listenErr = net.Listen("tcp", fmt.Sprintf(":%d", server_port))
	if listenErr != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("connect_listen_thread: Listen failed: %s", listenErr)

		return
	}

	/* Without this, if you kill the application then try to run it */
	/* again quickly the port number is unavailable for a while. */
	if tcpListener, ok := listener.(*net.TCPListener); ok {
		file, err := tcpListener.File()
		if err == nil {
			defer file.Close()

			syscall.SetsockoptInt(int(file.Fd()), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
		}
	}

	for {
		var client = -1
		for c := 0; c < MAX_NET_CLIENTS && client < 0; c++ {
			if client_sock[c] == nil {
				client = c
			}
		}

		if client >= 0 {
			text_color_set(DW_COLOR_INFO)
			dw_printf("Ready to accept AGW client application %d on port %d ...\n", client, server_port)

			var conn, acceptErr = listener.Accept()
			if acceptErr != nil {
				dw_printf("Accept failed: %v\n", acceptErr)
				continue
			}

			client_sock[client] = conn

			text_color_set(DW_COLOR_INFO)
			dw_printf("\nAttached to AGW client application %d...\n\n", client)

			/*
			 * The command to change this is actually a toggle, not explicit on or off.
			 * Make sure it has proper state when we get a new connection.
			 */
			enable_send_raw_to_client[client] = false
			enable_send_monitor_to_client[client] = false
		} else {
			SLEEP_SEC(1) /* wait then check again if more clients allowed. */
		}
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        server_send_rec_packet
 *
 * Purpose:     Send a received packet to the client app.
 *
 * Inputs:	channel		- Channel number where packet was received.
 *				  0 = first, 1 = second if any.
 *
 *		pp		- Identifier for packet object.
 *
 *		fbuf		- Frame buffer.
 *
 * Description:	Send message to client if connected.
 *		Disconnect from client, and notify user, if any error.
 *
 *		There are two different formats:
 *			RAW - the original received frame.
 *			MONITOR - human readable monitoring format.
 *
 *--------------------------------------------------------------------*/

func server_send_rec_packet(channel int, pp *packet_t, fbuf []byte) {
	/*
	 * RAW format
	 */
	for client := 0; client < MAX_NET_CLIENTS; client++ {
		if enable_send_raw_to_client[client] && client_sock[client] != nil {
			var agwpe_msg = new(AGWPEMessage)

			agwpe_msg.Header.Portx = byte(channel)

			agwpe_msg.Header.DataKind = 'K'

			var callFrom = ax25_get_addr_with_ssid(pp, AX25_SOURCE)
			copy(agwpe_msg.Header.CallFrom[:], []byte(callFrom))

			var callTo = ax25_get_addr_with_ssid(pp, AX25_DESTINATION)
			copy(agwpe_msg.Header.CallTo[:], []byte(callTo))

			agwpe_msg.Header.DataLen = uint32(len(fbuf) + 1)
			agwpe_msg.Data = make([]byte, len(fbuf)+1)

			/* Stick in extra byte for the "TNC" to use. */

			agwpe_msg.Data[0] = byte(channel) << 4

			copy(agwpe_msg.Data[1:], fbuf)

			if debug_client > 0 {
				debug_print(TO_CLIENT, client, agwpe_msg)
			}

			var _, err = agwpe_msg.Write(client_sock[client], binary.LittleEndian)
			if err != nil {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("\nError sending message to AGW client application.  Closing connection.\n\n")
				client_sock[client].Close()
				client_sock[client] = nil
				dlq_client_cleanup(client)
			}
		}
	}

	// Application might want more human readable format.

	server_send_monitored(channel, pp, 0)
} /* end server_send_rec_packet */

func server_send_monitored(channel int, pp *packet_t, own_xmit int) {
	/*
	 * MONITOR format - 	'I' for information frames.
	 *			'U' for unnumbered information.
	 *			'S' for supervisory and other unnumbered.
	 *
	 *			'T' for own transmitted frames.
	 */
	for client := 0; client < MAX_NET_CLIENTS; client++ {
		if enable_send_monitor_to_client[client] && client_sock[client] != nil {
			var agwpe_msg = new(AGWPEMessage)

			agwpe_msg.Header.Portx = byte(channel) // datakind is added later.

			var callFrom = ax25_get_addr_with_ssid(pp, AX25_SOURCE)
			copy(agwpe_msg.Header.CallFrom[:], []byte(callFrom))

			var callTo = ax25_get_addr_with_ssid(pp, AX25_DESTINATION)
			copy(agwpe_msg.Header.CallTo[:], []byte(callTo))

			/* http://uz7ho.org.ua/includes/agwpeapi.htm#_Toc500723812 */

			/* Description mentions one CR character after timestamp but example has two. */
			/* Actual observed cases have only one. */
			/* Also need to add extra CR, CR, null at end. */
			/* The documentation example includes these 3 extra in the Len= value */
			/* but actual observed data uses only the packet info length. */

			// Documentation doesn't mention anything about including the via path.
			// We add that to match observed behaviour of other implementations.

			// Format the channel and addresses, with leading and trailing space.

			agwpe_msg.Data = mon_addrs(channel, pp)

			// Add the description with <... >

			var desc string
			agwpe_msg.Header.DataKind, desc = mon_desc(pp)

			if own_xmit > 0 {
				// Include own transmitted frames only when UNPROTO.
				if agwpe_msg.Header.DataKind != 'U' {
					break
				}

				agwpe_msg.Header.DataKind = 'T'
			}

			agwpe_msg.Data = append(agwpe_msg.Data, []byte(desc)...)

			// Timestamp with [...]\r

			var tm = time.Now()
			var ts = tm.Format("[15:04:05]\r")
			agwpe_msg.Data = append(agwpe_msg.Data, []byte(ts)...)

			// Information if any with \r.

			var pinfo = ax25_get_info(pp)

			if len(pinfo) > 0 {
				// Can't treat as a text string.  Must preserve
				// binary data, e.g. NET/ROM.
				agwpe_msg.Data = append(agwpe_msg.Data, pinfo...)
				agwpe_msg.Data = append(agwpe_msg.Data, '\r')
			}

			agwpe_msg.Data = append(agwpe_msg.Data, 0) // add nul at end, included in length.
			agwpe_msg.Header.DataLen = uint32(len(agwpe_msg.Data))

			if debug_client > 0 {
				debug_print(TO_CLIENT, client, agwpe_msg)
			}

			var _, err = agwpe_msg.Write(client_sock[client], binary.LittleEndian)
			if err != nil {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("\nError sending message to AGW client application %d (%s).  Closing connection.\n\n", client, err)
				client_sock[client].Close()
				client_sock[client] = nil
				dlq_client_cleanup(client)
			}
		}
	}
} /* server_send_monitored */

// Next two are broken out in case they can be reused elsewhere.

// Format addresses in AGWPE monitoring format such as:
//	 1:Fm ZL4FOX-8 To Q7P2U2 Via WIDE3-3

// There is some disagreement, in the user community, about whether to:
// * follow the lead of UZ7HO SoundModem and mark all of the used addresses, or
// * follow the TNC-2 Monitoring format and mark only the last used, i.e. the station heard.

// We try to be consistent with TNC-2 format rather than continuing to
// propagate historical inconsistencies.

func mon_addrs(channel int, pp *packet_t) []byte {
	var src = ax25_get_addr_with_ssid(pp, AX25_SOURCE)

	var dst = ax25_get_addr_with_ssid(pp, AX25_DESTINATION)

	var num_digi = ax25_get_num_repeaters(pp)

	if num_digi > 0 {
		var via string // complete via path

		for j := 0; j < num_digi; j++ {
			if j != 0 {
				via += "," // comma if not first address
			}

			var digiaddr = ax25_get_addr_with_ssid(pp, AX25_REPEATER_1+j)
			via += digiaddr

			// Mark only last used (i.e. the heard station) with * as in TNC-2 Monitoring format.
			if AX25_REPEATER_1+j == ax25_get_heard(pp) {
				via += "*"
			}
		}

		return []byte(fmt.Sprintf(" %d:Fm %s To %s Via %s ", channel+1, src, dst, via))
	} else {
		return []byte(fmt.Sprintf(" %d:Fm %s To %s ", channel+1, src, dst))
	}
}

// Generate frame description in AGWPE monitoring format such as
//	<UI pid=F0 Len=123 >
//	<I R1 S3 pid=F0 Len=123 >
//	<RR P1 R5 >
//
// Returns:
//	'I' for information frame.
//	'U' for unnumbered information frame.
//	'S' for supervisory and other unnumbered frames.

func mon_desc(pp *packet_t) (byte, string) {
	var cr, _, pf, nr, ns, ftype = ax25_frame_type(pp)
	var pf_text string // P or F depending on whether command or response.

	switch cr {
	case cr_cmd:
		// P only: I, SABME, SABM, DISC
		pf_text = "P"
	case cr_res:
		// F only: DM, UA, FRMR
		// Either: RR, RNR, REJ, SREJ, UI, XID, TEST
		pf_text = "F"
	default:
		// Not AX.25 version >= 2.0
		// APRS is often sloppy about this but it
		// is essential for connected mode.
		pf_text = "PF"
	}

	// I, UI, XID, SREJ, TEST can have information part.
	var pinfo = ax25_get_info(pp)

	switch ftype {
	case frame_type_I:
		return 'I', fmt.Sprintf("<I S%d R%d pid=%02X Len=%d %s=%d >", ns, nr, ax25_get_pid(pp), len(pinfo), pf_text, pf)

	case frame_type_U_UI:
		return 'U', fmt.Sprintf("<UI pid=%02X Len=%d %s=%d >", ax25_get_pid(pp), len(pinfo), pf_text, pf)

	case frame_type_S_RR:
		return 'S', fmt.Sprintf("<RR R%d %s=%d >", nr, pf_text, pf)

	case frame_type_S_RNR:
		return 'S', fmt.Sprintf("<RNR R%d %s=%d >", nr, pf_text, pf)

	case frame_type_S_REJ:
		return 'S', fmt.Sprintf("<REJ R%d %s=%d >", nr, pf_text, pf)

	case frame_type_S_SREJ:
		return 'S', fmt.Sprintf("<SREJ R%d %s=%d Len=%d >", nr, pf_text, pf, len(pinfo))

	case frame_type_U_SABME:
		return 'S', fmt.Sprintf("<SABME %s=%d >", pf_text, pf)

	case frame_type_U_SABM:
		return 'S', fmt.Sprintf("<SABM %s=%d >", pf_text, pf)

	case frame_type_U_DISC:
		return 'S', fmt.Sprintf("<DISC %s=%d >", pf_text, pf)

	case frame_type_U_DM:
		return 'S', fmt.Sprintf("<DM %s=%d >", pf_text, pf)

	case frame_type_U_UA:
		return 'S', fmt.Sprintf("<UA %s=%d >", pf_text, pf)

	case frame_type_U_FRMR:
		return 'S', fmt.Sprintf("<FRMR %s=%d >", pf_text, pf)

	case frame_type_U_XID:
		return 'S', fmt.Sprintf("<XID %s=%d Len=%d >", pf_text, pf, len(pinfo))

	case frame_type_U_TEST:
		return 'S', fmt.Sprintf("<TEST %s=%d Len=%d >", pf_text, pf, len(pinfo))

	default:
		// Also case frame_type_U:
		return 'S', "<U other??? >"
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        server_link_established
 *
 * Purpose:     Send notification to client app when a link has
 *		been established with another station.
 *
 *		DL-CONNECT Confirm or DL-CONNECT Indication in the protocol spec.
 *
 * Inputs:	channel		- Which radio channel.
 *
 * 		client		- Which one of potentially several clients.
 *
 *		remote_call	- Callsign[-ssid] of remote station.
 *
 *		own_call	- Callsign[-ssid] of my end.
 *
 *		incoming	- true if connection was initiated from other end.
 *				  false if this end started it.
 *
 *--------------------------------------------------------------------*/

func server_link_established(channel int, client int, remote_call string, own_call string, incoming bool) {
	var reply = new(AGWPEMessage)

	reply.Header.Portx = byte(channel)
	reply.Header.DataKind = 'C'

	copy(reply.Header.CallFrom[:], []byte(remote_call))
	copy(reply.Header.CallTo[:], []byte(own_call))

	// Question:  Should the via path be provided too?

	if incoming {
		// Other end initiated the connection.
		reply.Data = []byte(fmt.Sprintf("*** CONNECTED To Station %s\r", remote_call))
	} else {
		// We started the connection.
		reply.Data = []byte(fmt.Sprintf("*** CONNECTED With Station %s\r", remote_call))
	}

	reply.Data = append(reply.Data, 0)
	reply.Header.DataLen = uint32(len(reply.Data))

	send_to_client(client, reply)
} /* end server_link_established */

/*-------------------------------------------------------------------
 *
 * Name:        server_link_terminated
 *
 * Purpose:     Send notification to client app when a link with
 *		another station has been terminated or a connection
 *		attempt failed.
 *
 *		DL-DISCONNECT Confirm or DL-DISCONNECT Indication in the protocol spec.
 *
 * Inputs:	channel		- Which radio channel.
 *
 * 		client		- Which one of potentially several clients.
 *
 *		remote_call	- Callsign[-ssid] of remote station.
 *
 *		own_call	- Callsign[-ssid] of my end.
 *
 *		timeout		- true when no answer from other station.
 *				  How do we distinguish who asked for the
 *				  termination of an existing link?
 *
 *--------------------------------------------------------------------*/

func server_link_terminated(channel int, client int, remote_call string, own_call string, timeout bool) {
	var reply = new(AGWPEMessage)

	reply.Header.Portx = byte(channel)
	reply.Header.DataKind = 'd'
	copy(reply.Header.CallFrom[:], []byte(remote_call))
	copy(reply.Header.CallTo[:], []byte(own_call))

	if timeout {
		reply.Data = []byte(fmt.Sprintf("*** DISCONNECTED RETRYOUT With %s\r", remote_call))
	} else {
		reply.Data = []byte(fmt.Sprintf("*** DISCONNECTED From Station %s\r", remote_call))
	}

	reply.Data = append(reply.Data, 0)
	reply.Header.DataLen = uint32(len(reply.Data))

	send_to_client(client, reply)
} /* end server_link_terminated */

/*-------------------------------------------------------------------
 *
 * Name:        server_rec_conn_data
 *
 * Purpose:     Send received connected data to the application.
 *
 *		DL-DATA Indication in the protocol spec.
 *
 * Inputs:	channel		- Which radio channel.
 *
 * 		client		- Which one of potentially several clients.
 *
 *		remote_call	- Callsign[-ssid] of remote station.
 *
 *		own_call	- Callsign[-ssid] of my end.
 *
 *		pid		- Protocol ID from I frame.
 *
 *		data		- Block of bytes.  Could be empty.
 *
 *--------------------------------------------------------------------*/

func server_rec_conn_data(channel int, client int, remote_call string, own_call string, pid int, data []byte) {
	var reply = new(AGWPEMessage)

	reply.Header.Portx = byte(channel)
	reply.Header.DataKind = 'D'
	reply.Header.PID = byte(pid)

	copy(reply.Header.CallFrom[:], []byte(remote_call))
	copy(reply.Header.CallTo[:], []byte(own_call))

	if len(data) > AX25_MAX_INFO_LEN {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Invalid length %d for connected data to client %d.\n", len(data), client)
		data = data[:AX25_MAX_INFO_LEN]
	}

	reply.Data = make([]byte, len(data))
	copy(reply.Data, data)
	reply.Header.DataLen = uint32(len(data))

	send_to_client(client, reply)
} /* end server_rec_conn_data */

/*-------------------------------------------------------------------
 *
 * Name:        server_outstanding_frames_reply
 *
 * Purpose:     Send 'Y' Outstanding frames for connected data to the application.
 *
 * Inputs:	channel		- Which radio channel.
 *
 * 		client		- Which one of potentially several clients.
 *
 *		own_call	- Callsign[-ssid] of my end.
 *
 *		remote_call	- Callsign[-ssid] of remote station.
 *
 *		count		- Number of frames sent from the application but
 *				  not yet received by the other station.
 *
 *--------------------------------------------------------------------*/

func server_outstanding_frames_reply(channel int, client int, own_call string, remote_call string, count int) {
	var reply = new(AGWPEMessage)

	reply.Header.Portx = byte(channel)
	reply.Header.DataKind = 'Y'

	copy(reply.Header.CallFrom[:], []byte(own_call))
	copy(reply.Header.CallTo[:], []byte(remote_call))

	reply.Header.DataLen = 4
	reply.Data = make([]byte, 4)
	binary.LittleEndian.PutUint32(reply.Data, uint32(count))

	send_to_client(client, reply)
} /* end server_outstanding_frames_reply */

func send_to_client(client int, reply_p *AGWPEMessage) {
	if client_sock[client] == nil {
		return
	}

	var ph = reply_p.Header

	if ph.DataLen > 4096 {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Invalid data length %d for AGW protocol message to client %d.\n", ph.DataLen, client)
		debug_print(TO_CLIENT, client, reply_p)
	}

	if debug_client > 0 {
		debug_print(TO_CLIENT, client, reply_p)
	}

	reply_p.Write(client_sock[client], binary.LittleEndian)
}

/*-------------------------------------------------------------------
 *
 * Name:        cmd_listen_thread
 *
 * Purpose:     Wait for command messages from an application.
 *
 * Inputs:	client		- client number, 0 .. MAX_NET_CLIENTS-1
 *
 * Outputs:	client_sock[n]	- File descriptor for communicating with client app.
 *
 * Description:	Process messages from the client application.
 *		Note that the client can go away and come back again and
 *		re-establish communication without restarting this application.
 *
 *--------------------------------------------------------------------*/

func cmd_listen_thread(client int) {
	Assert(client >= 0 && client < MAX_NET_CLIENTS)

	for {
		for client_sock[client] == nil {
			SLEEP_SEC(1) /* Not connected.  Try again later. */
		}

		var cmd = new(AGWPEMessage)

		var readErr = binary.Read(client_sock[client], binary.LittleEndian, &cmd.Header)
		if readErr != nil {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("\nError getting message header from AGW client application %d: %s\n", client, readErr)
			dw_printf("Closing connection.\n\n")
			client_sock[client].Close()
			client_sock[client] = nil
			dlq_client_cleanup(client)

			continue
		}

		/*
		 * Take some precautions to guard against bad data which could cause problems later.
		 */
		if cmd.Header.Portx >= MAX_TOTAL_CHANS {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("\nInvalid port number, %d, in command '%c', from AGW client application %d.\n",
				cmd.Header.Portx, cmd.Header.DataKind, client)
			cmd.Header.Portx = 0 // avoid subscript out of bounds, try to keep going.
		}

		/*
		 * Call to/from fields are 10 bytes but contents must not exceed 9 characters.
		 * It's not guaranteed that unused bytes will contain 0 so we
		 * don't issue error message in this case.
		 */
		cmd.Header.CallFrom[len(cmd.Header.CallFrom)-1] = 0
		cmd.Header.CallTo[len(cmd.Header.CallTo)-1] = 0

		if cmd.Header.DataLen > 0 {
			if cmd.Header.DataLen > 4096 {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("\nInvalid data length %d from AGW client application %d.\n", cmd.Header.DataLen, client)
				dw_printf("Closing connection.\n\n")
				client_sock[client].Close()
				client_sock[client] = nil
				dlq_client_cleanup(client)

				continue
			}

			var b = make([]byte, cmd.Header.DataLen)
			var _, readErr = io.ReadFull(client_sock[client], b)

			if readErr != nil {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("\nError getting message data from AGW client application %d: %s\n", client, readErr)
				dw_printf("Closing connection.\n\n")
				client_sock[client].Close()
				client_sock[client] = nil
				dlq_client_cleanup(client)

				continue
			}

			cmd.Data = b
		}

		/*
		 * print & process message from client.
		 */

		if debug_client > 0 {
			debug_print(FROM_CLIENT, client, cmd)
		}

		switch cmd.Header.DataKind {
		case 'R': /* Request for version number */
			{
				var reply = new(AGWPEMessage)

				reply.Header.DataKind = 'R'
				reply.Header.DataLen = 8
				reply.Data = make([]byte, 8)

				// Some clients print this and don't care otherwise.
				// Others want a minimum version before using certain features.

				binary.LittleEndian.PutUint32(reply.Data[0:4], 2005) // Major version
				binary.LittleEndian.PutUint32(reply.Data[4:8], 127)  // Minor version

				send_to_client(client, reply)
			}

		case 'G': /* Ask about radio ports */
			{
				var reply = new(AGWPEMessage)

				reply.Header.DataKind = 'G'

				// The interface manual wants the first to be "Port1"
				// so channel 0 corresponds to "Port1."
				// We can have gaps in the numbering.

				var count = 0

				for j := 0; j < MAX_TOTAL_CHANS; j++ {
					if save_audio_config_p.chan_medium[j] == MEDIUM_RADIO ||
						save_audio_config_p.chan_medium[j] == MEDIUM_NETTNC {
						count++
					}
				}

				var info = fmt.Sprintf("%d;", count)

				for j := 0; j < MAX_TOTAL_CHANS; j++ {
					switch save_audio_config_p.chan_medium[j] {
					case MEDIUM_RADIO:
						switch save_audio_config_p.achan[j].kiss_transport {
						case KISS_PORT_TCP:
							info += fmt.Sprintf("Port%d KISS TNC %s;", j+1, save_audio_config_p.achan[j].kiss_address)
						case KISS_PORT_SERIAL:
							info += fmt.Sprintf("Port%d KISS TNC %s;", j+1, save_audio_config_p.achan[j].kiss_device)
						case KISS_PORT_PTY:
							info += fmt.Sprintf("Port%d KISS pseudo terminal;", j+1)
						default:
							info += fmt.Sprintf("Port%d Radio;", j+1)
						}

					case MEDIUM_NETTNC:
						// could elaborate with hostname, etc.
						info += fmt.Sprintf("Port%d Network TNC;", j+1)

					default:
						// Only list valid channels.
					} // switch
				} // for each channel

				reply.Data = []byte(info)
				reply.Header.DataLen = uint32(len(reply.Data))

				send_to_client(client, reply)
			}

		case 'g': /* Ask about capabilities of a port. */
			{
				var reply = new(AGWPEMessage)

				reply.Header.Portx = cmd.Header.Portx /* Reply with same port number ! */
				reply.Header.DataKind = 'g'
				reply.Header.DataLen = 12

				var channel = int(cmd.Header.Portx)

				// on_air_baud_rate: 0=1200, 1=2400, 2=4800, 3=9600, ...
				var baud_code byte
				var txdelay, txtail, persist, slottime byte

				if channel < MAX_RADIO_CHANS && save_audio_config_p.chan_medium[channel] == MEDIUM_RADIO {
					switch {
					case xmit_bits_per_sec[channel] >= 9600:
						baud_code = 3
					case xmit_bits_per_sec[channel] >= 4800:
						baud_code = 2
					case xmit_bits_per_sec[channel] >= 2400:
						baud_code = 1
					default:
						baud_code = 0
					}

					txdelay = byte(xmit_txdelay[channel])
					txtail = byte(xmit_txtail[channel])
					persist = byte(xmit_persist[channel])
					slottime = byte(xmit_slottime[channel])
				}

				reply.Data = make([]byte, 12)
				reply.Data[0] = baud_code
				reply.Data[1] = 1 // traffic_level
				reply.Data[2] = txdelay
				reply.Data[3] = txtail
				reply.Data[4] = persist
				reply.Data[5] = slottime
				reply.Data[6] = AX25_K_MAXFRAME_BASIC_DEFAULT // maxframe
				reply.Data[7] = 0                             // active_connections
				binary.LittleEndian.PutUint32(reply.Data[8:12], 1)

				send_to_client(client, reply)
			}

		case 'H': /* Ask about recently heard stations on given port. */

			/* This should send back 20 'H' frames for the most recently heard stations. */
			/* Currently, this information is not being collected. */

		case 'k': /* Ask to start receiving RAW AX25 frames */
			// Actually it is a toggle so we must be sure to clear it for a new connection.
			enable_send_raw_to_client[client] = !enable_send_raw_to_client[client]

		case 'm': /* Ask to start receiving Monitor frames */
			// Actually it is a toggle so we must be sure to clear it for a new connection.
			enable_send_monitor_to_client[client] = !enable_send_monitor_to_client[client]

		case 'V': /* Transmit UI data frame (with digipeater path) */
			{
				// Data format is:
				//	1 byte for number of digipeaters.
				//	10 bytes for each digipeater.
				//	data part of message.

				if len(cmd.Data) < 1 {
					text_color_set(DW_COLOR_ERROR)
					dw_printf("AGW 'V' message is missing digipeater count.\n")

					break
				}

				var addrs [AX25_MAX_ADDRS]string
				addrs[AX25_SOURCE] = ByteArrayToString(cmd.Header.CallFrom[:])
				addrs[AX25_DESTINATION] = ByteArrayToString(cmd.Header.CallTo[:])

				var num_addr = 2

				var ndigi = int(cmd.Data[0])
				if ndigi < 0 || ndigi > AX25_MAX_REPEATERS || len(cmd.Data) < 1+10*ndigi {
					text_color_set(DW_COLOR_ERROR)
					dw_printf("AGW 'V' message has invalid number of digipeaters = %d\n", ndigi)

					break
				}

				for k := 0; k < ndigi; k++ {
					var offset = 1 + 10*k
					addrs[AX25_REPEATER_1+k] = ByteArrayToString(cmd.Data[offset : offset+10])
					num_addr++
				}

				// Information part can be binary, e.g. NET/ROM routing
				// broadcasts, so it is never treated as a text string.

				var info = cmd.Data[1+10*ndigi:]

				var pp = ax25_u_frame(addrs, num_addr, cr_cmd, frame_type_U_UI, 0, int(cmd.Header.PID), info)

				if pp == nil {
					text_color_set(DW_COLOR_ERROR)
					dw_printf("Failed to create frame from AGW 'V' message.\n")

					break
				}

				/* This goes into the low priority queue because it is an original. */

				/* Note that the protocol has no way to set the "has been used" */
				/* bits in the digipeater fields. */

				tq_append(int(cmd.Header.Portx), TQ_PRIO_1_LO, pp)
			}

		case 'K': /* Transmit raw AX.25 frame */
			{
				// Message contains:
				//	port number for transmission.
				//	data length
				//	data which is raw ax.25 frame.
				//

				// The first byte of data is described as:
				//
				// 		the "TNC" to use
				//		00=Port 1
				//		16=Port 2
				//
				// That is redundant; we already have a port number in the header.
				// Continue to ignore the one at the beginning of the data.

				if len(cmd.Data) < 2 {
					text_color_set(DW_COLOR_ERROR)
					dw_printf("AGW 'K' message is too short.\n")

					break
				}

				var pp = ax25_from_frame(cmd.Data[1:cmd.Header.DataLen])

				if pp == nil {
					text_color_set(DW_COLOR_ERROR)
					dw_printf("Failed to create frame from AGW 'K' message.\n")
				} else {
					/* How can we determine if it is an original or repeated message? */
					/* If there is at least one digipeater in the frame, AND */
					/* that digipeater has been used, it should go out quickly thru */
					/* the high priority queue. */
					/* Otherwise, it is an original for the low priority queue. */
					if ax25_get_num_repeaters(pp) >= 1 &&
						ax25_get_h(pp, AX25_REPEATER_1) > 0 {
						tq_append(int(cmd.Header.Portx), TQ_PRIO_0_HI, pp)
					} else {
						tq_append(int(cmd.Header.Portx), TQ_PRIO_1_LO, pp)
					}
				}
			}

		case 'P': /* Application Login  */

			// Silently ignore it.

		case 'X': /* Register CallSign  */
			{
				var ok byte

				// The protocol spec says it is an error to register the same one more than once.
				// Too much trouble.  Report success if the channel is valid.

				var channel = int(cmd.Header.Portx)

				// Connected mode can only be used with radio channels.

				if channel < MAX_RADIO_CHANS && save_audio_config_p.chan_medium[channel] == MEDIUM_RADIO {
					ok = 1

					dlq_register_callsign(ByteArrayToString(cmd.Header.CallFrom[:]), channel, client)
				} else {
					text_color_set(DW_COLOR_ERROR)
					dw_printf("AGW protocol error.  Register callsign for invalid channel %d.\n", channel)

					ok = 0
				}

				var reply = new(AGWPEMessage)
				reply.Header.DataKind = 'X'
				reply.Header.Portx = cmd.Header.Portx
				copy(reply.Header.CallFrom[:], cmd.Header.CallFrom[:])
				reply.Header.DataLen = 1
				reply.Data = []byte{ok}

				send_to_client(client, reply)
			}

		case 'x': /* Unregister CallSign  */
			{
				var channel = int(cmd.Header.Portx)

				// Connected mode can only be used with radio channels.

				if channel < MAX_RADIO_CHANS && save_audio_config_p.chan_medium[channel] == MEDIUM_RADIO {
					dlq_unregister_callsign(ByteArrayToString(cmd.Header.CallFrom[:]), channel, client)
				} else {
					text_color_set(DW_COLOR_ERROR)
					dw_printf("AGW protocol error.  Unregister callsign for invalid channel %d.\n", channel)
				}
				/* No response is expected. */
			}

		case 'C', 'v', 'c':
			/* C: Connect, Start an AX.25 Connection  */
			/* v: Connect VIA, Start an AX.25 circuit thru digipeaters */
			/* c: Connection with non-standard PID */
			{
				var callsigns [AX25_MAX_ADDRS]string
				callsigns[AX25_SOURCE] = ByteArrayToString(cmd.Header.CallFrom[:])
				callsigns[AX25_DESTINATION] = ByteArrayToString(cmd.Header.CallTo[:])

				var pid byte = 0xf0 /* normal for AX.25 I frames. */
				if cmd.Header.DataKind == 'c' {
					pid = cmd.Header.PID /* non standard for NETROM, TCP/IP, etc. */
				}

				var num_calls = 2 /* 2 plus any digipeaters. */

				if cmd.Header.DataKind == 'v' {
					// Data part is 1 byte digipeater count then
					// 10 bytes for each digipeater callsign.

					var num_digi = 0
					if len(cmd.Data) >= 1 {
						num_digi = int(cmd.Data[0])
					}

					if num_digi >= 1 && num_digi <= 7 && len(cmd.Data) >= 1+10*num_digi {
						if cmd.Header.DataLen != uint32(num_digi)*10+1 && cmd.Header.DataLen != uint32(num_digi)*10+2 {
							// Some clients send 1 more than expected.
							text_color_set(DW_COLOR_ERROR)
							dw_printf("AGW client, connect via, has data len, %d when %d expected.\n", cmd.Header.DataLen, num_digi*10+1)
						}

						for j := 0; j < num_digi; j++ {
							var offset = 1 + 10*j
							callsigns[AX25_REPEATER_1+j] = ByteArrayToString(cmd.Data[offset : offset+10])
							num_calls++
						}
					} else {
						text_color_set(DW_COLOR_ERROR)
						dw_printf("\n")
						dw_printf("AGW client, connect via, has invalid number of digipeaters = %d\n", num_digi)
					}
				}

				dlq_connect_request(callsigns, num_calls, int(cmd.Header.Portx), client, int(pid))
			}

		case 'D': /* Send Connected Data */
			{
				var callsigns [AX25_MAX_ADDRS]string
				const num_calls = 2 // only first 2 used.  Digipeater path must be remembered from connect request.

				callsigns[AX25_SOURCE] = ByteArrayToString(cmd.Header.CallFrom[:])
				callsigns[AX25_DESTINATION] = ByteArrayToString(cmd.Header.CallTo[:])

				dlq_xmit_data_request(callsigns, num_calls, int(cmd.Header.Portx), client, int(cmd.Header.PID), cmd.Data)
			}

		case 'd': /* Disconnect, Terminate an AX.25 Connection */
			{
				var callsigns [AX25_MAX_ADDRS]string
				const num_calls = 2 // only first 2 used.

				callsigns[AX25_SOURCE] = ByteArrayToString(cmd.Header.CallFrom[:])
				callsigns[AX25_DESTINATION] = ByteArrayToString(cmd.Header.CallTo[:])

				dlq_disconnect_request(callsigns, num_calls, int(cmd.Header.Portx), client)
			}

		case 'M': /* Send UNPROTO Information (no digipeater path) */
			{
				// This is the same as 'V' except there is no provision for digipeaters.
				// Terminal applications send this for beacon or ask QRA.

				var addrs [AX25_MAX_ADDRS]string
				addrs[AX25_SOURCE] = ByteArrayToString(cmd.Header.CallFrom[:])
				addrs[AX25_DESTINATION] = ByteArrayToString(cmd.Header.CallTo[:])

				var pp = ax25_u_frame(addrs, 2, cr_cmd, frame_type_U_UI, 0, int(cmd.Header.PID), cmd.Data)

				if pp == nil {
					text_color_set(DW_COLOR_ERROR)
					dw_printf("Failed to create frame from AGW 'M' message.\n")

					break
				}

				tq_append(int(cmd.Header.Portx), TQ_PRIO_1_LO, pp)
			}

		case 'y': /* Ask Outstanding frames waiting on a Port  */
			/* Number of frames sitting in transmit queue for specified channel. */
			{
				var reply = new(AGWPEMessage)

				reply.Header.Portx = cmd.Header.Portx /* Reply with same port number */
				reply.Header.DataKind = 'y'
				reply.Header.DataLen = 4

				var n = 0
				if cmd.Header.Portx < MAX_RADIO_CHANS {
					// Count both normal and expedited in transmit queue for given channel.
					n = tq_count(int(cmd.Header.Portx), -1, "", "", 0)
				}

				reply.Data = make([]byte, 4)
				binary.LittleEndian.PutUint32(reply.Data, uint32(n))

				send_to_client(client, reply)
			}

		case 'Y': /* How Many Outstanding frames wait for tx for a particular station  */
			// This is different than the above 'y' because this refers to a specific
			// link in connected mode.
			// When sending bulk data, we want to keep a fair amount queued up to take
			// advantage of large window sizes.  On the other hand we don't want to get
			// TOO far ahead when transferring a large file.

			// Before disconnecting from another station, it would be good to know
			// that it actually received the last message we sent.  For this reason,
			// the reply includes information frames that were transmitted but not
			// yet acknowledged.

			// The only way to get this information is from inside the data link state machine.
			// We will send a request to it and the result coming out will be used to
			// send the reply back to the client application.
			{
				var callsigns [AX25_MAX_ADDRS]string
				const num_calls = 2 // only first 2 used.

				callsigns[AX25_SOURCE] = ByteArrayToString(cmd.Header.CallFrom[:])
				callsigns[AX25_DESTINATION] = ByteArrayToString(cmd.Header.CallTo[:])

				dlq_outstanding_frames_request(callsigns, num_calls, int(cmd.Header.Portx), client)
			}

		default:
			text_color_set(DW_COLOR_ERROR)
			dw_printf("--- Unexpected Command from application %d using AGW protocol:\n", client)
			debug_print(FROM_CLIENT, client, cmd)

		}
	}
} /* end cmd_listen_thread */
