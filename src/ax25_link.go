package direwolf

/*------------------------------------------------------------------
 *
 * Name:	ax25_link.go
 *
 * Purpose:	Data Link State Machine.
 *		Establish connections and transfer data in the proper
 *		order with retries.
 *
 *		Using the term "data link" this way is rather unfortunate.
 *		It sounds like something that goes over the air.
 *		In this case, it is a data structure used to manage the
 *		sending of data frames to some other station.
 *
 * Description:	We have a list of these, one for each link in progress.
 *		A separate thread reads from the data link queue so
 *		everything is serialized and we don't have to worry
 *		about concurrent access.
 *
 * Reference:	* AX.25 Amateur Packet-Radio Link-Layer Protocol Version 2.2, Revision: July 1998
 *
 *			https://www.tapr.org/pdf/AX25.2.2.pdf
 *
 *		* AX.25 + FRACK + Link Layer Protocol ideas
 *
 * Errata:	The protocol spec has many places that appear to be errors or
 *		are ambiguous so I wasn't sure what to do.  These should be
 *		annotated with "erratum" comments so we can easily go back
 *		and revisit them.
 *
 * X.25:	The AX.25 protocol is based on, but does not necessarily
 *		adhere to, the X.25 protocol.  Consulting this might provide
 *		some insights where the AX.25 spec is not clear.
 *
 *			http://www.itu.int/rec/T-REC-X.25-199610-I/en/
 *
 *------------------------------------------------------------------*/

import (
	"time"
)

// Debug switches for different types of information.
// Not command line options yet.  Change source and recompile for now.

var s_debug_protocol_errors = 0 // Less serious Protocol errors.
// Useful for debugging but unnecessarily alarming other times.

var s_debug_client_app = 0 // Interaction with client application.
// dl_connect_request, dl_data_request, dl_data_indication, etc.

var s_debug_radio = 0 // Received frames and channel busy status.
// lm_data_indication, lm_channel_busy

var s_debug_variables = 0 // Variables, state changes.

var s_debug_retry = 0 // Related to lost I frames, REJ, SREJ, timeout, resending.

var s_debug_timers = 0 // Timer details.

var s_debug_link_handle = 0 // Create data link state machine or pick existing one,
// based on my address, peer address, client app index, and radio channel.

var s_debug_stats = 0 // Statistics when connection is closed.

var s_debug_misc = 0 // Anything left over that might be interesting.

/*
 * Default, minimum, and maximum values for the configurable parameters
 * of a link.  Some can be overridden by the configuration file and
 * some can be negotiated with XID.
 */

const AX25_N1_PACLEN_MIN = 1 // Max bytes in Information part of frame.
const AX25_N1_PACLEN_DEFAULT = 256
const AX25_N1_PACLEN_MAX = AX25_MAX_INFO_LEN // from ax25_pad.go

const AX25_N2_RETRY_MIN = 1 // Number of times to retry before giving up.
const AX25_N2_RETRY_DEFAULT = 10
const AX25_N2_RETRY_MAX = 15

const AX25_T1V_FRACK_MIN = 1 // Number of seconds to wait for ack to transmission.
const AX25_T1V_FRACK_DEFAULT = 3
const AX25_T1V_FRACK_MAX = 15

const AX25_K_MAXFRAME_BASIC_MIN = 1 // Window size - number of I frames to send before waiting for ack.
const AX25_K_MAXFRAME_BASIC_DEFAULT = 4
const AX25_K_MAXFRAME_BASIC_MAX = 7

const AX25_K_MAXFRAME_EXTENDED_MIN = 1
const AX25_K_MAXFRAME_EXTENDED_DEFAULT = 32
const AX25_K_MAXFRAME_EXTENDED_MAX = 63

/*
 * AX.25 data link state machine.
 *
 * One instance for each link identified by
 *	[ client, channel, owncall, peercall ]
 */

type dlsm_state_t int

const (
	state_0_disconnected            dlsm_state_t = 0
	state_1_awaiting_connection     dlsm_state_t = 1
	state_2_awaiting_release        dlsm_state_t = 2
	state_3_connected               dlsm_state_t = 3
	state_4_timer_recovery          dlsm_state_t = 4
	state_5_awaiting_v22_connection dlsm_state_t = 5
)

type mdl_state_t int

const (
	mdl_state_0_ready       mdl_state_t = 0
	mdl_state_1_negotiating mdl_state_t = 1
)

const DLSM_MAGIC1 = 0x11592201
const DLSM_MAGIC2 = 0x02221201
const DLSM_MAGIC3 = 0x03331301

type ax25_dlsm_t struct {
	magic1 int // Look out for bad pointer or corruption.

	next *ax25_dlsm_t // Next in linked list.

	stream_id int // Unique number for each stream.
	// Internally we use a pointer but this is more user-friendly.

	_chan int // Radio channel being used.

	client int // We can have multiple client applications,
	// each with their own links.  We need to know
	// which client should receive the data or
	// notifications about state changes.

	addrs [AX25_MAX_ADDRS]string // Up to 10 addresses, same order as in frame.

	num_addr int // Number of addresses.  Should be in range 2 .. 10.

	// addrs[OWNCALL] is owncall for this end of link.
	// Note that we are acting on behalf of a client application
	// so the mycall for a radio channel might not be relevant.
	// addrs[PEERCALL] is call for other end.
	// OWNCALL and PEERCALL are defined in dlq.go.

	start_time time.Time // Clock time when this was allocated.  Used only for
	// debug output for timestamps relative to start.

	state dlsm_state_t // Current state.

	modulo ax25_modulo_t // 8 or 128.
	// Determines whether we have one or two control
	// octets.  128 allows a much larger window size.

	srej_enable srej_t // Is other end capable of processing SREJ?  (Am I allowed to send it?)
	// Starts out as 'srej_none' for v2.0 or 'srej_single' for v2.2.
	// Can be changed to 'srej_multi' with XID exchange.
	// Should be used only with modulo 128.

	n1_paclen int // Maximum length of information field, in bytes.
	// Starts out as 256 but can be negotiated higher.
	// (Protocol Spec has this in bits.  It is in bytes here.)
	// "PACLEN" in configuration file.

	n2_retry int // Maximum number of retries permitted.
	// Typically 10.
	// "RETRY" parameter in configuration file.

	k_maxframe int // Window size. Defaults to 4 (mod 8) or 32 (mod 128).
	// Maximum number of unacknowledged information
	// frames that can be outstanding.
	// "MAXFRAME" or "EMAXFRAME" parameter in configuration file.

	rc int // Retry count.  Give up after n2.

	vs int // 4.2.4.1. Send State Variable V(S)
	// It contains the next sequential number to be assigned to the next
	// transmitted I frame.

	va int // 4.2.4.5. Acknowledge State Variable V(A)
	// It contains the sequence number of the last frame acknowledged by
	// its peer [V(A)-1 equals the N(S) of the last acknowledged I frame].

	vr int // 4.2.4.3. Receive State Variable V(R)
	// It contains the sequence number of the next expected received I frame.

	layer_3_initiated bool // SABM(E) was sent by request of Layer 3; i.e. DL-CONNECT request primitive.
	// It is set only if we initiated the connection.
	// It would not be set if we are in the middle of accepting a connection from the other station.

	// Next 4 are called exception conditions.

	peer_receiver_busy bool // Remote station is busy and can't receive I frames.

	reject_exception bool // A REJ frame has been sent to the remote station.
	// This is used only when receiving an I frame, in states 3 & 4, SREJ not enabled.
	// When an I frame has an unexpected N(S),
	//   - if not already set, set it and send REJ.
	// When an I frame with expected N(S) is received, clear it.
	// This prevents us from sending additional REJ while
	// waiting for result from first one.

	own_receiver_busy bool // Layer 3 is busy and can't receive I frames.
	// We have no API to convey this information so it should always be false.

	acknowledge_pending bool // I frames have been successfully received but not yet
	// acknowledged TO the remote station.
	// Set when receiving the next expected I frame and P=0.
	// This gets cleared by sending any I, RR, RNR, REJ.
	// Cleared when sending SREJ with F=1.

	// Timing.

	srt float64 // Smoothed roundtrip time in seconds.
	// This is used to dynamically adjust t1v.

	t1v float64 // How long to wait for an acknowledgement before resending.
	// Value used when starting timer T1, in seconds.
	// "FRACK" parameter in some implementations.
	// Here it is dynamically adjusted.

	radio_channel_busy bool // Either due to DCD or PTT.

	// Timer T1.

	// T1 is used for retries along with the retry counter, "rc."
	// When timer T1 is started, the value is obtained from t1v plus the current time.

	// This gets a little tricky because we need to pause the timers when the radio
	// channel is busy.  Suppose we sent an I frame and set T1 to 4 seconds so we could
	// take corrective action if there is no response in a reasonable amount of time.
	// What if some other station has the channel tied up for 10 seconds?   We don't want
	// T1 to timeout and start a retry sequence.  The solution is to pause the timers while
	// the channel is busy.  We don't want to get a timer expiry event when t1_exp is in
	// the past if it is currently paused.  When it is un-paused, the expiration time is
	// adjusted for the amount of time it was paused.

	t1_exp time.Time // This is the time when T1 will expire or zero if not running.

	t1_paused_at time.Time // Time when it was paused or zero if not paused.

	t1_remaining_when_last_stopped float64 // Number of seconds that were left on T1 when it was stopped.
	// This is used to fine tune t1v.
	// Set to negative initially to mean invalid, don't use in calculation.

	t1_had_expired bool // Set when T1 expires.
	// Cleared for start & stop.

	// Timer T3.

	// T3 is used to terminate connection after extended inactivity.

	// Similar to T1 except there is no mechanism to capture the remaining time
	// when it is stopped and it is not paused when the channel is busy.

	t3_exp time.Time // When it expires or zero if not running.

	// Statistics for testing purposes.

	// Count how many frames of each type we received.
	// This is easy to do because they all come in thru lm_data_indication.

	count_recv_frame_type [frame_not_AX25 + 1]int

	peak_rc_value int // Peak value of retry count (rc).

	// For sending data.

	i_frame_queue *cdata_t // Connected data from client which has not been transmitted yet.
	// Linked list.
	// The name is misleading because these are just blocks of
	// data, not "I frames" at this point.  The name comes from
	// the protocol specification.

	txdata_by_ns [128]*cdata_t // Data which has already been transmitted.
	// Indexed by N(S) in case it gets lost and needs to be sent again.
	// Cleared out when we get ACK for it.

	magic3 int // Look out for out of bounds for above.

	rxdata_by_ns [128]*cdata_t // "Receive buffer"
	// Data which has been received out of sequence.
	// Indexed by N(S).

	magic2 int // Look out for out of bounds for above.

	// "Management Data Link"  (MDL) state machine for XID exchange.

	mdl_state mdl_state_t

	mdl_rc int // Retry count, waiting to get XID response.
	// The spec has provision for a separate maximum, NM201, but we
	// just use the regular N2 same as other retries.

	tm201_exp time.Time // Timer.  Similar to T1.
	// The spec mentions a separate timeout value but
	// we will just use the same as T1.

	tm201_paused_at time.Time // Time when it was paused or zero if not paused.

	// Segment reassembler.

	ra_buff *cdata_t // Reassembler buffer.  nil when in ready state.

	ra_following int // Most recent number following to predict next expected.
}

// Set initial value for T1V.
// Multiply FRACK by 2*m+1, where m is number of digipeaters.

func init_t1v_srt(S *ax25_dlsm_t) {
	S.t1v = float64(g_misc_config_p.frack) * float64(2*(S.num_addr-2)+1)
	S.srt = S.t1v / 2.0
}

const T3_DEFAULT = 300.0 // Copied 5 minutes from AX.25 for Linux.
// D710A also defaults to 30*10 = 300 seconds.
// KPC-3+ and TM-D710A have "CHECK" command for this purpose.

/*
 * List of current state machines for each link.
 * There are potentially many client apps, each with multiple links
 * connected all at the same time.
 *
 * Everything coming thru here should be from a single thread.
 * The Data Link Queue should serialize all processing.
 * Therefore, we don't have to worry about critical regions.
 */

var list_head *ax25_dlsm_t

/*
 * Source of current time for all the timers.
 * Replaceable so tests can drive the clock.
 */

var dl_now = time.Now

/*
 * Registered callsigns for incoming connections.
 */

const RC_MAGIC = 0x08291951

type reg_callsign_t struct {
	callsign string
	_chan    int
	client   int
	next     *reg_callsign_t
	magic    int
}

var reg_callsign_list *reg_callsign_t

// Use these, rather than setting variables directly, to make debug output easier.

func SET_VS(S *ax25_dlsm_t, n int) {
	S.vs = n
	if s_debug_variables > 0 {
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("V(S) = %d\n", S.vs)
	}
	Assert(S.vs >= 0 && S.vs < int(S.modulo))
}

// If other guy acks reception of an I frame, we should never get a REJ or SREJ
// asking for it again.  When we update V(A), we can remove the saved
// transmitted data, and everything preceding it, from txdata_by_ns.

func SET_VA(S *ax25_dlsm_t, n int) {
	S.va = n
	if s_debug_variables > 0 {
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("V(A) = %d\n", S.va)
	}
	Assert(S.va >= 0 && S.va < int(S.modulo))
	var x = AX25MODULO(n-1, S.modulo)
	for S.txdata_by_ns[x] != nil {
		cdata_delete(S.txdata_by_ns[x])
		S.txdata_by_ns[x] = nil
		x = AX25MODULO(x-1, S.modulo)
	}
}

func SET_VR(S *ax25_dlsm_t, n int) {
	S.vr = n
	if s_debug_variables > 0 {
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("V(R) = %d\n", S.vr)
	}
	Assert(S.vr >= 0 && S.vr < int(S.modulo))
}

func SET_RC(S *ax25_dlsm_t, n int) {
	S.rc = n
	if s_debug_variables > 0 {
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("rc = %d, state = %d\n", S.rc, S.state)
	}
}

func AX25MODULO(n int, m ax25_modulo_t) int {
	if m != 8 && m != 128 {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("INTERNAL ERROR: %d modulo %d\n", n, m)
		m = 8
	}
	// Use masking, rather than % operator, so negative numbers are handled properly.
	return n & (int(m) - 1)
}

// Test whether we can send more or if we need to wait
// because we have reached 'maxframe' outstanding frames.

func WITHIN_WINDOW_SIZE(S *ax25_dlsm_t) bool {
	return S.vs != AX25MODULO(S.va+S.k_maxframe, S.modulo)
}

/*
 * Configuration settings from file or command line.
 */

var g_misc_config_p *misc_config_s

/*-------------------------------------------------------------------
 *
 * Name:        ax25_link_init
 *
 * Purpose:     Initialize the ax25_link module.
 *
 * Inputs:	pconfig		- misc. configuration from config file or command line.
 *
 *		debug		- debug level.
 *
 * Outputs:	Remember required information for future use.  That's all.
 *
 *--------------------------------------------------------------------*/

func ax25_link_init(pconfig *misc_config_s, debug int) {

	/*
	 * Save parameters for later use.
	 */
	g_misc_config_p = pconfig

	if debug > 1 {
		s_debug_protocol_errors = 1
	}
}

/*------------------------------------------------------------------------------
 *
 * Name:	get_link_handle
 *
 * Purpose:	Find existing (or possibly create) state machine for a given link.
 *		It should be possible to have a large number of links active at the
 *		same time.  They are uniquely identified by
 *		(owncall, peercall, client id, radio channel)
 *		Note that we could have multiple client applications, all sharing one
 *		TNC, on the same or different radio channels, completely unaware of each other.
 *
 * Inputs:	addrs		- Owncall, peercall, and optional digipeaters.
 *				  For ease of passing this around, it is an array in the
 *				  same order as in the frame.
 *
 *		num_addr	- Number of addresses, 2 thru 10.
 *
 *		channel		- Radio channel number.
 *
 *		client		- Client app number.
 *				  We allow multiple concurrent applications with the
 *				  AGW network protocol.  These are identified as 0, 1, ...
 *				  We don't know this for an incoming frame from the radio
 *				  so it is -1 at this point.  At a later time we will
 *				  associate the stream with the right client.
 *
 *		create		- True if OK to create a new one.
 *				  Otherwise, return only one already existing.
 *
 *				  This should always be true for outgoing frames.
 *				  For incoming frames this would be true only for SABM(E)
 *				  with all digipeater fields marked as used.
 *
 *				  Here, we will also check to see if it is in our
 *				  registered callsign list.
 *
 * Returns:	Handle for data link state machine.
 *		nil if not found and 'create' is false.
 *
 * Description:	Try to find an existing entry matching owncall, peercall, channel,
 *		and client.  If not found create a new one.
 *
 *------------------------------------------------------------------------------*/

var next_stream_id int = 0

func get_link_handle(addrs [AX25_MAX_ADDRS]string, num_addr int, channel int, client int, create bool) *ax25_dlsm_t {

	if s_debug_link_handle > 0 {
		text_color_set(DW_COLOR_DECODED)
		dw_printf("get_link_handle (%s>%s, chan=%d, client=%d, create=%v)\n",
			addrs[AX25_SOURCE], addrs[AX25_DESTINATION], channel, client, create)
	}

	// Look for existing.

	if client == -1 { // from the radio.
		// address order is reversed for compare.
		for p := list_head; p != nil; p = p.next {

			if p._chan == channel &&
				addrs[AX25_DESTINATION] == p.addrs[OWNCALL] &&
				addrs[AX25_SOURCE] == p.addrs[PEERCALL] {

				if s_debug_link_handle > 0 {
					text_color_set(DW_COLOR_DECODED)
					dw_printf("get_link_handle returns existing stream id %d for incoming.\n", p.stream_id)
				}
				return p
			}
		}
	} else { // from client app
		for p := list_head; p != nil; p = p.next {

			if p._chan == channel &&
				p.client == client &&
				addrs[AX25_SOURCE] == p.addrs[OWNCALL] &&
				addrs[AX25_DESTINATION] == p.addrs[PEERCALL] {

				if s_debug_link_handle > 0 {
					text_color_set(DW_COLOR_DECODED)
					dw_printf("get_link_handle returns existing stream id %d for outgoing.\n", p.stream_id)
				}
				return p
			}
		}
	}

	// Could not find existing.  Should we create a new one?

	if !create {
		if s_debug_link_handle > 0 {
			text_color_set(DW_COLOR_DECODED)
			dw_printf("get_link_handle: Search failed. Do not create new.\n")
		}
		return nil
	}

	// If it came from the radio, search for destination in our registered callsign list.

	var incoming_for_client = -1 // which client app registered the callsign?

	if client == -1 { // from the radio.

		var found *reg_callsign_t
		for r := reg_callsign_list; r != nil && found == nil; r = r.next {

			if addrs[AX25_DESTINATION] == r.callsign && channel == r._chan {
				found = r
				incoming_for_client = r.client
			}
		}

		if found == nil {
			if s_debug_link_handle > 0 {
				text_color_set(DW_COLOR_DECODED)
				dw_printf("get_link_handle: not for me.  Ignore it.\n")
			}
			return nil
		}
	}

	// Create new data link state machine.

	var p = new(ax25_dlsm_t)
	p.magic1 = DLSM_MAGIC1
	p.start_time = dl_now()
	p.stream_id = next_stream_id
	next_stream_id++
	p.modulo = 8

	p._chan = channel
	p.num_addr = num_addr

	// If it came in over the radio, we need to swap source/destination and reverse any digi path.

	if incoming_for_client >= 0 {
		p.addrs[AX25_SOURCE] = addrs[AX25_DESTINATION]
		p.addrs[AX25_DESTINATION] = addrs[AX25_SOURCE]

		var j = AX25_REPEATER_1
		var k = num_addr - 1
		for k >= AX25_REPEATER_1 {
			p.addrs[j] = addrs[k]
			j++
			k--
		}

		p.client = incoming_for_client
	} else {
		p.addrs = addrs
		p.client = client
	}

	p.state = state_0_disconnected
	p.t1_remaining_when_last_stopped = -999 // Invalid, don't use.

	p.magic2 = DLSM_MAGIC2
	p.magic3 = DLSM_MAGIC3

	// No need for critical region because this should all be in one thread.
	p.next = list_head
	list_head = p

	if s_debug_link_handle > 0 {
		text_color_set(DW_COLOR_DECODED)
		dw_printf("get_link_handle returns NEW stream id %d\n", p.stream_id)
	}

	return p
}

//###################################################################################
//###################################################################################
//
//  Data Link state machine for sending data in connected mode.
//
//	Incoming:
//
//		Requests from the client application.  Set s_debug_client_app for debugging.
//
//			dl_connect_request
//			dl_disconnect_request
//			dl_outstanding_frames_request	- Ask about outgoing queue for a link.
//			dl_data_request			- send connected data
//			dl_register_callsign		- Register callsign(s) for incoming connection requests.
//			dl_unregister_callsign		- Unregister callsign(s) ...
//			dl_client_cleanup		- Clean up after client which has disappeared.
//
//		Stuff from the radio channel.  Set s_debug_radio for debugging.
//
//			lm_data_indication		- Received frame.
//			lm_channel_busy			- Change in PTT or DCD.
//			lm_seize_confirm		- We have started to transmit.
//
//		Timer expiration.  Set s_debug_timers for debugging.
//
//			dl_timer_expiry
//
//	Outgoing:
//
//		To the client application:
//
//			dl_data_indication		- received connected data.
//
//		To the transmitter:
//
//			lm_data_request			- Queue up a frame for transmission.
//
//			lm_seize_request		- Start transmitter when possible.
//							  lm_seize_confirm will be called when it has.
//
//  It is important that all requests come thru the data link queue so
//  everything is serialized.
//  We don't have to worry about being reentrant or critical regions.
//  Nothing here should consume a significant amount of time.
//  i.e. There should be no sleep delay or anything that would block waiting on someone else.
//
//###################################################################################
//###################################################################################

/*------------------------------------------------------------------------------
 *
 * Name:	dl_connect_request
 *
 * Purpose:	Client app wants to connect to another station.
 *
 * Inputs:	E	- Event from the queue.
 *			  The caller will free it.
 *
 *------------------------------------------------------------------------------*/

func dl_connect_request(E *dlq_item_t) {

	if s_debug_client_app > 0 {
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("dl_connect_request ()\n")
	}

	text_color_set(DW_COLOR_INFO)
	dw_printf("Attempting connect to %s ...\n", E.addrs[PEERCALL])

	var ok_to_create = true
	var S = get_link_handle(E.addrs, E.num_addr, E._chan, E.client, ok_to_create)

	switch S.state {

	case state_0_disconnected:

		init_t1v_srt(S)

		// See if destination station is in list for v2.0 only.

		var old_version = false
		for _, v20 := range g_misc_config_p.v20_addrs {
			if E.addrs[AX25_DESTINATION] == v20 {
				old_version = true
				break
			}
		}

		if old_version || g_misc_config_p.maxv22 == 0 { // Don't attempt v2.2.

			set_version_2_0(S)

			establish_data_link(S)
			S.layer_3_initiated = true
			enter_new_state(S, state_1_awaiting_connection)
		} else { // Try v2.2 first, then fall back if appropriate.

			set_version_2_2(S)

			establish_data_link(S)
			S.layer_3_initiated = true
			enter_new_state(S, state_5_awaiting_v22_connection)
		}

	case state_1_awaiting_connection, state_5_awaiting_v22_connection:

		discard_i_queue(S)
		S.layer_3_initiated = true
		// Keep current state.

	case state_2_awaiting_release:

		// Keep current state.

	case state_3_connected, state_4_timer_recovery:

		discard_i_queue(S)
		establish_data_link(S)
		S.layer_3_initiated = true
		// If we were using v2.2, reestablish with that rather than
		// falling all the way back to v2.0.
		if S.modulo == 128 {
			enter_new_state(S, state_5_awaiting_v22_connection)
		} else {
			enter_new_state(S, state_1_awaiting_connection)
		}
	}

} /* end dl_connect_request */

/*------------------------------------------------------------------------------
 *
 * Name:	dl_disconnect_request
 *
 * Purpose:	Client app wants to terminate connection with another station.
 *
 * Inputs:	E	- Event from the queue.
 *			  The caller will free it.
 *
 *------------------------------------------------------------------------------*/

func dl_disconnect_request(E *dlq_item_t) {

	if s_debug_client_app > 0 {
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("dl_disconnect_request ()\n")
	}

	text_color_set(DW_COLOR_INFO)
	dw_printf("Disconnect from %s ...\n", E.addrs[PEERCALL])

	var ok_to_create = true
	var S = get_link_handle(E.addrs, E.num_addr, E._chan, E.client, ok_to_create)

	switch S.state {

	case state_0_disconnected:

		// DL-DISCONNECT *confirm*
		text_color_set(DW_COLOR_INFO)
		dw_printf("Stream %d: Disconnected from %s.\n", S.stream_id, S.addrs[PEERCALL])
		server_link_terminated(S._chan, S.client, S.addrs[PEERCALL], S.addrs[OWNCALL], false)

	case state_1_awaiting_connection, state_5_awaiting_v22_connection:

		// Erratum: The protocol spec says "requeue."  If we put it back in
		// the queue we would get it back again probably still in same state.
		// Ignore it for now.

	case state_2_awaiting_release:

		// We have previously started the disconnect sequence and are waiting
		// for a UA from the other guy.  Meanwhile, the application got
		// impatient and sent us another disconnect request.  Complete the
		// sequence without waiting for the other guy to ack.

		// Erratum.  Flow chart simply says "DM (expedited)."
		// This is the only place we have expedited.

		var cr cmdres_t = cr_res // DM can only be response.
		var f = 0
		var nopid = 0 // PID applies only to I and UI frames.

		var pp = ax25_u_frame(S.addrs, S.num_addr, cr, frame_type_U_DM, f, nopid, nil)
		lm_data_request(S._chan, TQ_PRIO_0_HI, pp) // HI means expedited.

		// Erratum: Shouldn't we inform the user when going to disconnected state?
		// The flow chart does not mention it but it seems like the right thing to do.

		text_color_set(DW_COLOR_INFO)
		dw_printf("Stream %d: Disconnected from %s.\n", S.stream_id, S.addrs[PEERCALL])
		server_link_terminated(S._chan, S.client, S.addrs[PEERCALL], S.addrs[OWNCALL], false)

		STOP_T1(S)
		enter_new_state(S, state_0_disconnected)

	case state_3_connected, state_4_timer_recovery:

		discard_i_queue(S)
		SET_RC(S, 0) // I think this should be 1 but I'm not that worried about it.

		var cr cmdres_t = cr_cmd
		var p = 1
		var nopid = 0

		var pp = ax25_u_frame(S.addrs, S.num_addr, cr, frame_type_U_DISC, p, nopid, nil)
		lm_data_request(S._chan, TQ_PRIO_1_LO, pp)

		STOP_T3(S)
		START_T1(S)
		enter_new_state(S, state_2_awaiting_release)
	}

} /* end dl_disconnect_request */

/*------------------------------------------------------------------------------
 *
 * Name:	dl_data_request
 *
 * Purpose:	Client app wants to send data to another station.
 *
 * Inputs:	E	- Event from the queue.
 *			  The caller will free it.
 *
 * Description:	Append the transmit data block to the I frame queue for later processing.
 *
 *		We also perform the segmentation handling here.
 *
 *		C6.1 Segmenter State Machine
 *		Only the following DL primitives will be candidates for modification by the
 *		segmenter state machine:
 *
 *		* DL-DATA Request. The user employs this primitive to provide information to be
 *		transmitted using connection-oriented procedures; i.e., using I frames. The
 *		segmenter state machine examines the quantity of data to be transmitted. If the
 *		quantity of data to be transmitted is less than or equal to the data link parameter
 *		N1, the segmenter state machine passes the primitive through transparently. If the
 *		quantity of data to be transmitted exceeds the data link parameter N1, the
 *		segmenter chops up the data into segments of length N1-2 octets. Each segment is
 *		prepended with a two octet header. The segments are then turned over to the
 *		Data-link State Machine for transmission, using multiple DL Data Request
 *		primitives. All segments are turned over immediately; therefore the Data-link
 *		State Machine will transmit them consecutively on the data link.
 *
 *		Segmentation was once occurring for a V2.0 link.  From the spec:
 *			"The receipt of an XID response from the other station establishes that both
 *			stations are using AX.25 version 2.2 or higher and enables the use of the
 *			segmenter/reassembler and selective reject."
 *		So for V2.0 we simply split into multiple frames with no segment headers.
 *
 *------------------------------------------------------------------------------*/

func dl_data_request(E *dlq_item_t) {

	var ok_to_create = true
	var S = get_link_handle(E.addrs, E.num_addr, E._chan, E.client, ok_to_create)

	if s_debug_client_app > 0 {
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("dl_data_request (\"")
		ax25_safe_print(E.txdata.data, true)
		dw_printf("\") state=%d\n", S.state)
	}

	if len(E.txdata.data) <= S.n1_paclen {
		data_request_good_size(S, E.txdata)
		E.txdata = nil // Now part of transmit I frame queue.
		return
	}

	// Erratum: Don't do V2.2 segmentation for a V2.0 link.
	// In this case, we can just split it into multiple frames not exceeding the
	// specified max size.  Hopefully the receiving end treats it like a stream
	// and doesn't care about length of each frame.

	if S.modulo == 8 {

		var remaining = E.txdata.data
		for len(remaining) > 0 {
			var this_len = min(len(remaining), S.n1_paclen)

			var new_txdata = cdata_new(E.txdata.pid, remaining[:this_len])
			data_request_good_size(S, new_txdata)

			remaining = remaining[this_len:]
		}

		cdata_delete(E.txdata)
		E.txdata = nil
		return
	}

	// More interesting case.
	// It is too large to fit in one frame so we segment it.

	// As an example, suppose we had 6 bytes of data "ABCDEF".

	// If N1 >= 6, it would be sent normally.

	//	(addresses)
	//	(control bytes)
	//	PID, typically 0xF0
	//	'A'	- first byte of information field
	//	'B'
	//	'C'
	//	'D'
	//	'E'
	//	'F'

	// Now consider the case where it would not fit.
	// We would change the PID to 0x08 meaning a segment.
	// The information part starts with the segment identifier of this format:
	//
	//	x xxxxxxx
	//	| ---+---
	//	|    |
	//	|    +- Number of additional segments to follow.
	//	|
	//	+- '1' means it is the first segment.

	// If N1 = 4, it would be split up like this:

	//	(addresses)
	//	(control bytes)
	//	PID = 0x08	means segment
	//	0x82	- Start of info field.
	//		  MSB set indicates FIRST segment.
	//		  2, in lower 7 bits, means 2 more segments to follow.
	//	0xF0	- original PID, typical value.
	//	'A'	- For the FIRST segment, we have PID and N1-2 data bytes.
	//	'B'

	//	(addresses)
	//	(control bytes)
	//	PID = 0x08	means segment
	//	0x01	- Means 1 more segment follows.
	//	'C'	- For subsequent (not first) segments, we have up to N1-1 data bytes.
	//	'D'
	//	'E'

	//	(addresses)
	//	(control bytes)
	//	PID = 0x08
	//	0x00 - 0 means no more to follow.  i.e.  This is the last.
	//	'F'

	// Number of segments is ceiling( (datalen + 1 ) / (N1 - 1))

	// We add one to datalen for the original PID.
	// We subtract one from N1 for the segment identifier header.

	// Compute number of segments.
	// We will decrement this before putting it in the frame so the first
	// will have one less than this number.

	var nseg_to_follow = (len(E.txdata.data) + 1 + S.n1_paclen - 2) / (S.n1_paclen - 1)

	if nseg_to_follow < 2 || nseg_to_follow > 128 {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("INTERNAL ERROR, Segmentation, data length = %d, N1 = %d, number of segments = %d\n",
			len(E.txdata.data), S.n1_paclen, nseg_to_follow)
		cdata_delete(E.txdata)
		E.txdata = nil
		return
	}

	var remaining = E.txdata.data

	// First segment.

	nseg_to_follow--

	var seglen = min(S.n1_paclen-2, len(remaining))

	if seglen < 1 || seglen > S.n1_paclen-2 || seglen > len(remaining) {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("INTERNAL ERROR, Segmentation, data length = %d, N1 = %d, segment length = %d, number to follow = %d\n",
			len(E.txdata.data), S.n1_paclen, seglen, nseg_to_follow)
		cdata_delete(E.txdata)
		E.txdata = nil
		return
	}

	var first_segment = make([]byte, 0, seglen+2)
	first_segment = append(first_segment, byte(0x80|nseg_to_follow), byte(E.txdata.pid))
	first_segment = append(first_segment, remaining[:seglen]...)

	data_request_good_size(S, cdata_new(AX25_PID_SEGMENTATION_FRAGMENT, first_segment))

	remaining = remaining[seglen:]

	// Subsequent segments.

	for nseg_to_follow > 0 {

		nseg_to_follow--

		seglen = min(S.n1_paclen-1, len(remaining))

		if seglen < 1 || seglen > S.n1_paclen-1 || seglen > len(remaining) {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("INTERNAL ERROR, Segmentation, data length = %d, N1 = %d, segment length = %d, number to follow = %d\n",
				len(E.txdata.data), S.n1_paclen, seglen, nseg_to_follow)
			cdata_delete(E.txdata)
			E.txdata = nil
			return
		}

		var subsequent_segment = make([]byte, 0, seglen+1)
		subsequent_segment = append(subsequent_segment, byte(nseg_to_follow))
		subsequent_segment = append(subsequent_segment, remaining[:seglen]...)

		data_request_good_size(S, cdata_new(AX25_PID_SEGMENTATION_FRAGMENT, subsequent_segment))

		remaining = remaining[seglen:]
	}

	if len(remaining) != 0 {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("INTERNAL ERROR, Segmentation, data length = %d, N1 = %d, remaining length = %d (not 0)\n",
			len(E.txdata.data), S.n1_paclen, len(remaining))
	}

	cdata_delete(E.txdata)
	E.txdata = nil

} /* end dl_data_request */

func data_request_good_size(S *ax25_dlsm_t, txdata *cdata_t) {

	switch S.state {

	case state_0_disconnected, state_2_awaiting_release:
		/*
		 * Discard it.
		 */
		cdata_delete(txdata)
		return

	case state_1_awaiting_connection, state_5_awaiting_v22_connection:
		/*
		 * Erratum?
		 * The flow chart shows "push on I frame queue" if layer 3 initiated
		 * is NOT set.  This seems backwards but I don't understand enough yet
		 * to make a compelling argument that it is wrong.
		 * Implemented as in flow chart.
		 */
		if S.layer_3_initiated {
			cdata_delete(txdata)
			return
		}

		append_to_i_frame_queue(S, txdata)

	case state_3_connected, state_4_timer_recovery:

		append_to_i_frame_queue(S, txdata)
	}

	// New I frames, not sent yet, are delayed until after processing anything
	// in the received transmission.
	// Give the transmit process a kick unless other side is busy or we have
	// reached our window size.

	switch S.state {

	case state_3_connected, state_4_timer_recovery:

		if !S.peer_receiver_busy && WITHIN_WINDOW_SIZE(S) {
			S.acknowledge_pending = true
			lm_seize_request(S._chan)
		}

	default:
	}

} /* end data_request_good_size */

/*
 * "push on I frame queue"
 * Append to the end would have been a better description because push implies a stack.
 */

func append_to_i_frame_queue(S *ax25_dlsm_t, txdata *cdata_t) {

	if S.i_frame_queue == nil {
		txdata.next = nil
		S.i_frame_queue = txdata
	} else {
		var plast = S.i_frame_queue
		for plast.next != nil {
			plast = plast.next
		}
		txdata.next = nil
		plast.next = txdata
	}
}

/*------------------------------------------------------------------------------
 *
 * Name:	dl_register_callsign
 *		dl_unregister_callsign
 *
 * Purpose:	Register / Unregister callsigns that we will accept connections for.
 *
 * Inputs:	E	- Event from the queue.
 *			  The caller will free it.
 *
 * Outputs:	New item is pushed on the head of the reg_callsign_list.
 *		We don't bother checking for duplicates so the most recent wins.
 *
 * Description:	The data link state machine does not use the mycall for a channel.
 *		For outgoing frames, the client supplies the source callsign.
 *		For incoming connection requests, we need to know what address(es)
 *		to respond to.
 *
 *		Note that one client application can register multiple callsigns for
 *		multiple channels.
 *		Different clients can register different addresses on the same channel.
 *
 *------------------------------------------------------------------------------*/

func dl_register_callsign(E *dlq_item_t) {

	if s_debug_client_app > 0 {
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("dl_register_callsign (%s, chan=%d, client=%d)\n", E.addrs[0], E._chan, E.client)
	}

	var r = new(reg_callsign_t)
	r.callsign = E.addrs[0]
	r._chan = E._chan
	r.client = E.client
	r.next = reg_callsign_list
	r.magic = RC_MAGIC

	reg_callsign_list = r

} /* end dl_register_callsign */

func dl_unregister_callsign(E *dlq_item_t) {

	if s_debug_client_app > 0 {
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("dl_unregister_callsign (%s, chan=%d, client=%d)\n", E.addrs[0], E._chan, E.client)
	}

	var prev *reg_callsign_t
	var r = reg_callsign_list
	for r != nil {

		Assert(r.magic == RC_MAGIC)

		if r.callsign == E.addrs[0] && r._chan == E._chan && r.client == E.client {

			if r == reg_callsign_list {
				reg_callsign_list = r.next
				r = reg_callsign_list
			} else {
				prev.next = r.next
				r = prev.next
			}
		} else {
			prev = r
			r = r.next
		}
	}

} /* end dl_unregister_callsign */

/*------------------------------------------------------------------------------
 *
 * Name:	get_link_handle_either
 *
 * Purpose:	Find an existing link for an address pair in either orientation.
 *
 * Description:	When the other station initiated the connection, the link
 *		stores the addresses the other way around.  The client doesn't
 *		necessarily know who called whom, so try both.
 *
 *------------------------------------------------------------------------------*/

func get_link_handle_either(addrs [AX25_MAX_ADDRS]string, num_addr int, channel int, client int) *ax25_dlsm_t {

	var S = get_link_handle(addrs, num_addr, channel, client, false)

	if S == nil {
		var swapped = addrs
		swapped[OWNCALL], swapped[PEERCALL] = addrs[PEERCALL], addrs[OWNCALL]
		S = get_link_handle(swapped, num_addr, channel, client, false)
	}

	return S
}

/*------------------------------------------------------------------------------
 *
 * Name:	dl_outstanding_frames_request
 *
 * Purpose:	Client app wants to know how many frames are still on their way
 *		to other station.  This is handy for flow control.  We would like
 *		to keep the pipeline filled sufficiently to take advantage of a
 *		large window size (MAXFRAMES).  It is also good to know that the
 *		last packet sent was actually received before we commence
 *		the disconnect.
 *
 * Inputs:	E	- Event from the queue.
 *			  The caller will free it.
 *
 * Outputs:	This gets back to the AGW server which sends the 'Y' reply.
 *
 * Description:	This is the sum of:
 *		- Incoming connected data, from application, still in the queue.
 *		- I frames which have been transmitted but not yet acknowledged.
 *
 *------------------------------------------------------------------------------*/

func dl_outstanding_frames_request(E *dlq_item_t) {

	if s_debug_client_app > 0 {
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("dl_outstanding_frames_request ( to %s )\n", E.addrs[PEERCALL])
	}

	var S = get_link_handle_either(E.addrs, E.num_addr, E._chan, E.client)

	if S == nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Can't get outstanding frames for %s -> %s, chan %d\n", E.addrs[OWNCALL], E.addrs[PEERCALL], E._chan)
		server_outstanding_frames_reply(E._chan, E.client, E.addrs[OWNCALL], E.addrs[PEERCALL], 0)
		return
	}

	var count1 = 0
	for incoming := S.i_frame_queue; incoming != nil; incoming = incoming.next {
		count1++
	}

	var count2 = 0
	for k := 0; k < int(S.modulo); k++ {
		if S.txdata_by_ns[k] != nil {
			count2++
		}
	}

	server_outstanding_frames_reply(S._chan, S.client, S.addrs[OWNCALL], S.addrs[PEERCALL], count1+count2)

} /* end dl_outstanding_frames_request */

/*------------------------------------------------------------------------------
 *
 * Name:	dl_client_cleanup
 *
 * Purpose:	Client app has gone away.  Clean up any data associated with it.
 *
 * Inputs:	E	- Event from the queue.
 *			  The caller will free it.
 *
 * Description:	By client application we mean something that attached with the
 *		AGW network protocol.
 *
 *		Clean out anything related to the specified client application.
 *		This would include state machines and registered callsigns.
 *
 *------------------------------------------------------------------------------*/

func dl_client_cleanup(E *dlq_item_t) {

	if s_debug_client_app > 0 {
		text_color_set(DW_COLOR_INFO)
		dw_printf("dl_client_cleanup (%d)\n", E.client)
	}

	var dlprev *ax25_dlsm_t
	var S = list_head
	for S != nil {

		// Look for corruption or double freeing.

		Assert(S.magic1 == DLSM_MAGIC1)
		Assert(S.magic2 == DLSM_MAGIC2)
		Assert(S.magic3 == DLSM_MAGIC3)

		if S.client == E.client {

			if s_debug_stats > 0 {
				text_color_set(DW_COLOR_INFO)
				dw_printf("%d  I frames received\n", S.count_recv_frame_type[frame_type_I])

				dw_printf("%d  RR frames received\n", S.count_recv_frame_type[frame_type_S_RR])
				dw_printf("%d  RNR frames received\n", S.count_recv_frame_type[frame_type_S_RNR])
				dw_printf("%d  REJ frames received\n", S.count_recv_frame_type[frame_type_S_REJ])
				dw_printf("%d  SREJ frames received\n", S.count_recv_frame_type[frame_type_S_SREJ])

				dw_printf("%d  SABME frames received\n", S.count_recv_frame_type[frame_type_U_SABME])
				dw_printf("%d  SABM frames received\n", S.count_recv_frame_type[frame_type_U_SABM])
				dw_printf("%d  DISC frames received\n", S.count_recv_frame_type[frame_type_U_DISC])
				dw_printf("%d  DM frames received\n", S.count_recv_frame_type[frame_type_U_DM])
				dw_printf("%d  UA frames received\n", S.count_recv_frame_type[frame_type_U_UA])
				dw_printf("%d  FRMR frames received\n", S.count_recv_frame_type[frame_type_U_FRMR])
				dw_printf("%d  UI frames received\n", S.count_recv_frame_type[frame_type_U_UI])
				dw_printf("%d  XID frames received\n", S.count_recv_frame_type[frame_type_U_XID])
				dw_printf("%d  TEST frames received\n", S.count_recv_frame_type[frame_type_U_TEST])

				dw_printf("%d  peak retry count\n", S.peak_rc_value)
			}

			if s_debug_client_app > 0 {
				text_color_set(DW_COLOR_DEBUG)
				dw_printf("dl_client_cleanup: remove %s>%s\n", S.addrs[AX25_SOURCE], S.addrs[AX25_DESTINATION])
			}

			discard_i_queue(S)

			for n := 0; n < 128; n++ {
				if S.txdata_by_ns[n] != nil {
					cdata_delete(S.txdata_by_ns[n])
					S.txdata_by_ns[n] = nil
				}
			}

			for n := 0; n < 128; n++ {
				if S.rxdata_by_ns[n] != nil {
					cdata_delete(S.rxdata_by_ns[n])
					S.rxdata_by_ns[n] = nil
				}
			}

			if S.ra_buff != nil {
				cdata_delete(S.ra_buff)
				S.ra_buff = nil
			}

			// Put into disconnected state.
			// If "connected" indicator (e.g. LED) was on, this will turn it off.

			enter_new_state(S, state_0_disconnected)

			// Take S out of list.

			S.magic1 = 0
			S.magic2 = 0
			S.magic3 = 0

			if S == list_head { // first one on list.
				list_head = S.next
				S = list_head
			} else { // not the first one.
				dlprev.next = S.next
				S = dlprev.next
			}
		} else {
			dlprev = S
			S = S.next
		}
	}

	/*
	 * If there are no link state machines (streams) remaining, there should be
	 * no txdata items still allocated.
	 */
	if list_head == nil {
		cdata_check_leak()
	}

	/*
	 * Remove registered callsigns for this client.
	 */

	var rcprev *reg_callsign_t
	var r = reg_callsign_list
	for r != nil {

		Assert(r.magic == RC_MAGIC)

		if r.client == E.client {

			if r == reg_callsign_list {
				reg_callsign_list = r.next
				r = reg_callsign_list
			} else {
				rcprev.next = r.next
				r = rcprev.next
			}
		} else {
			rcprev = r
			r = r.next
		}
	}

} /* end dl_client_cleanup */

/*------------------------------------------------------------------------------
 *
 * Name:	dl_data_indication
 *
 * Purpose:	send connected data to client application.
 *
 * Inputs:	pid		- Protocol ID.
 *
 *		data		- Information part of the frame.
 *
 * Description:	We perform reassembly of segments here if necessary.
 *
 *------------------------------------------------------------------------------*/

func dl_data_indication(S *ax25_dlsm_t, pid int, data []byte) {

	// We need to combine segments before passing it along.

	// See example in dl_data_request.

	if S.ra_buff == nil {

		// Ready state.

		if pid != AX25_PID_SEGMENTATION_FRAGMENT {
			server_rec_conn_data(S._chan, S.client, S.addrs[PEERCALL], S.addrs[OWNCALL], pid, data)
			return
		} else if len(data) >= 2 && data[0]&0x80 != 0 {

			// Ready state, First segment.

			S.ra_following = int(data[0] & 0x7f)
			var total = (S.ra_following+1)*(len(data)-1) - 1 // len should be other side's N1
			S.ra_buff = cdata_new(int(data[1]), nil)
			S.ra_buff.data = make([]byte, 0, total) // max that we are expecting.
			S.ra_buff.data = append(S.ra_buff.data, data[2:]...)
		} else {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Stream %d: AX.25 Reassembler Protocol Error Z: Not first segment in ready state.\n", S.stream_id)
		}
	} else {

		// Reassembling data state

		if pid != AX25_PID_SEGMENTATION_FRAGMENT {

			server_rec_conn_data(S._chan, S.client, S.addrs[PEERCALL], S.addrs[OWNCALL], pid, data)

			text_color_set(DW_COLOR_ERROR)
			dw_printf("Stream %d: AX.25 Reassembler Protocol Error Z: Not segment in reassembling state.\n", S.stream_id)
			cdata_delete(S.ra_buff)
			S.ra_buff = nil
			return
		} else if len(data) >= 1 && data[0]&0x80 != 0 {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Stream %d: AX.25 Reassembler Protocol Error Z: First segment in reassembling state.\n", S.stream_id)
			cdata_delete(S.ra_buff)
			S.ra_buff = nil
			return
		} else if len(data) < 1 || int(data[0]&0x7f) != S.ra_following-1 {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Stream %d: AX.25 Reassembler Protocol Error Z: Segments out of sequence.\n", S.stream_id)
			cdata_delete(S.ra_buff)
			S.ra_buff = nil
			return
		} else {

			// Reassembling data state, Not first segment.
			// Capacity was set from the first segment.  More than that is bogus.

			S.ra_following = int(data[0] & 0x7f)
			if len(S.ra_buff.data)+len(data)-1 > cap(S.ra_buff.data) {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("Stream %d: AX.25 Reassembler Protocol Error Z: Segments exceed buffer space.\n", S.stream_id)
				cdata_delete(S.ra_buff)
				S.ra_buff = nil
				return
			}
			S.ra_buff.data = append(S.ra_buff.data, data[1:]...)

			if S.ra_following == 0 {
				// Last one.
				server_rec_conn_data(S._chan, S.client, S.addrs[PEERCALL], S.addrs[OWNCALL], S.ra_buff.pid, S.ra_buff.data)
				cdata_delete(S.ra_buff)
				S.ra_buff = nil
			}
		}
	}

} /* end dl_data_indication */

/*------------------------------------------------------------------------------
 *
 * Name:	lm_channel_busy
 *
 * Purpose:	Change in DCD or PTT status for channel so we know when it is busy.
 *
 * Inputs:	E	- Event from the queue.
 *
 *		E._chan		- Radio channel number.
 *
 *		E.activity	- OCTYPE_PTT for my transmission start/end.
 *				- OCTYPE_DCD if we hear someone else.
 *
 *		E.status	- 1 for active or 0 for quiet.
 *
 * Outputs:	S.radio_channel_busy
 *
 *		T1 & TM201 paused/resumed if running.
 *
 * Description:	We need to pause the timers when the channel is busy.
 *
 *------------------------------------------------------------------------------*/

var dcd_status [MAX_RADIO_CHANS]int
var ptt_status [MAX_RADIO_CHANS]int

func lm_channel_busy(E *dlq_item_t) {

	Assert(E._chan >= 0 && E._chan < MAX_RADIO_CHANS)
	Assert(E.activity == OCTYPE_PTT || E.activity == OCTYPE_DCD)
	Assert(E.status == 1 || E.status == 0)

	switch E.activity {

	case OCTYPE_DCD:

		if s_debug_radio > 0 {
			text_color_set(DW_COLOR_DEBUG)
			dw_printf("lm_channel_busy: DCD chan %d = %d\n", E._chan, E.status)
		}

		dcd_status[E._chan] = E.status

	case OCTYPE_PTT:

		if s_debug_radio > 0 {
			text_color_set(DW_COLOR_DEBUG)
			dw_printf("lm_channel_busy: PTT chan %d = %d\n", E._chan, E.status)
		}

		ptt_status[E._chan] = E.status

	default:
	}

	var busy = dcd_status[E._chan]|ptt_status[E._chan] != 0

	/*
	 * We know if the given radio channel is busy or not.
	 * This must be applied to all data link state machines associated with
	 * that radio channel.
	 */

	for S := list_head; S != nil; S = S.next {

		if E._chan == S._chan {

			if busy && !S.radio_channel_busy {
				S.radio_channel_busy = true
				PAUSE_T1(S)
				PAUSE_TM201(S)
			} else if !busy && S.radio_channel_busy {
				S.radio_channel_busy = false
				RESUME_T1(S)
				RESUME_TM201(S)
			}
		}
	}

} /* end lm_channel_busy */

/*------------------------------------------------------------------------------
 *
 * Name:	lm_seize_confirm
 *
 * Purpose:	Notification that the channel is clear.
 *
 * Description:	C4.2.  This primitive indicates to the Data-link State Machine that
 *		the transmission opportunity has arrived.
 *
 *		Originally this only invoked enquiry_response to provide an ack if
 *		not already taken care of by an earlier frame in this transmission.
 *		After noticing unnecessary I frame duplication and differing N(R) in
 *		the same transmission, we delay sending of new (not resends as a
 *		result of REJ or SREJ) frames until after processing of everything
 *		in the incoming transmission.
 *		The protocol spec simply has "I frame pops off queue" without any
 *		indication about what might trigger this event.
 *
 *------------------------------------------------------------------------------*/

func lm_seize_confirm(E *dlq_item_t) {

	Assert(E._chan >= 0 && E._chan < MAX_RADIO_CHANS)

	for S := list_head; S != nil; S = S.next {

		if E._chan == S._chan {

			switch S.state {

			case state_0_disconnected, state_1_awaiting_connection, state_2_awaiting_release, state_5_awaiting_v22_connection:

			case state_3_connected, state_4_timer_recovery:

				// New I frames, not sent yet, are delayed until after processing
				// anything in the received transmission.
				// We first take care of those in progress before throwing more
				// into the mix.

				i_frame_pop_off_queue(S)

				// Need an RR if we didn't have I frame send the necessary ack.

				if S.acknowledge_pending {
					S.acknowledge_pending = false
					enquiry_response(S, frame_not_AX25, 0)
				}

				// Implementation difference: The flow chart for state 3 has
				// LM-RELEASE Request here.  I don't think I need it because the
				// transmitter will turn off automatically once the queue is empty.

				// Erratum: The original spec had LM-SEIZE request here, for state 4,
				// which didn't seem right.  The 2006 revision has LM-RELEASE Request
				// so states 3 & 4 are the same.
			}
		}
	}

} /* end lm_seize_confirm */

/*------------------------------------------------------------------------------
 *
 * Name:	lm_data_indication
 *
 * Purpose:	We received some sort of frame over the radio.
 *
 * Inputs:	E	- Event from the queue.
 *			  Caller is responsible for freeing it.
 *
 * Description:	First determine if it is of interest to me.  Two cases:
 *
 *		(1) We already have a link handle for (from-addr, to-addr, channel).
 *			This could have been set up by an outgoing connect request.
 *
 *		(2) It is addressed to one of the registered callsigns.  This would
 *			catch the case of incoming connect requests.  The mycall
 *			for the channel is not involved at all.  The attached client
 *			app might have much different ideas about what the station
 *			is called or aliases it might respond to.
 *
 *------------------------------------------------------------------------------*/

func lm_data_indication(E *dlq_item_t) {

	if E.pp == nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Internal Error, packet pointer is null in lm_data_indication.\n")
		return
	}

	E.num_addr = ax25_get_num_addr(E.pp)

	// Digipeating is not done here so consider only those with no unused digipeater addresses.

	var any_unused_digi = false

	for n := AX25_REPEATER_1; n < E.num_addr; n++ {
		if ax25_get_h(E.pp, n) == 0 {
			any_unused_digi = true
		}
	}

	if any_unused_digi {
		if s_debug_radio > 0 {
			text_color_set(DW_COLOR_DEBUG)
			dw_printf("lm_data_indication (%d, %s>%s) - ignore due to unused digi address.\n", E._chan, E.addrs[AX25_SOURCE], E.addrs[AX25_DESTINATION])
		}
		return
	}

	// Copy addresses from frame into event structure.

	for n := 0; n < E.num_addr; n++ {
		E.addrs[n] = ax25_get_addr_with_ssid(E.pp, n)
	}

	if s_debug_radio > 0 {
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("lm_data_indication (%d, %s>%s)\n", E._chan, E.addrs[AX25_SOURCE], E.addrs[AX25_DESTINATION])
	}

	// Look for existing, or possibly create new, link state matching addresses and channel.

	// In most cases, we can ignore the frame if we don't have a corresponding
	// data link state machine.  However, we might want to create a new one for SABM or SABME.
	// get_link_handle will check to see if the destination matches my address.

	var client_not_applicable = -1

	var _, _, _, _, _, ftype = ax25_frame_type(E.pp)

	var S = get_link_handle(E.addrs, E.num_addr, E._chan, client_not_applicable,
		ftype == frame_type_U_SABM || ftype == frame_type_U_SABME)

	if S == nil {
		return
	}

	/*
	 * There is not a reliable way to tell if a frame, out of context, has modulo 8 or 128
	 * sequence numbers.  This needs to be supplied from the data link state machine.
	 *
	 * We can't do this until we get the link handle.
	 */

	ax25_set_modulo(E.pp, S.modulo)

	/*
	 * Now we need to use ax25_frame_type again because the previous results,
	 * for nr and ns, might be wrong.
	 */

	cr, desc, pf, nr, ns, ftype := ax25_frame_type(E.pp)

	// Gather statistics useful for testing.

	if ftype <= frame_not_AX25 {
		S.count_recv_frame_type[ftype]++
	}

	switch ftype {

	case frame_type_I:
		if cr != cr_cmd {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Stream %d: AX.25 Protocol Error S: %s must be COMMAND.\n", S.stream_id, desc)
		}

	case frame_type_S_RR, frame_type_S_RNR, frame_type_S_REJ:
		if cr != cr_cmd && cr != cr_res {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Stream %d: AX.25 Protocol Error: %s must be COMMAND or RESPONSE.\n", S.stream_id, desc)
		}

	case frame_type_U_SABME, frame_type_U_SABM, frame_type_U_DISC:
		if cr != cr_cmd {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Stream %d: AX.25 Protocol Error: %s must be COMMAND.\n", S.stream_id, desc)
		}

	// Erratum: The AX.25 spec is not clear about whether SREJ should be command, response, or both.
	// The underlying X.25 spec clearly says it is response only.  Let's go with that.

	case frame_type_S_SREJ, frame_type_U_DM, frame_type_U_UA, frame_type_U_FRMR:
		if cr != cr_res {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Stream %d: AX.25 Protocol Error: %s must be RESPONSE.\n", S.stream_id, desc)
		}

	case frame_type_U_XID, frame_type_U_TEST:
		if cr != cr_cmd && cr != cr_res {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Stream %d: AX.25 Protocol Error: %s must be COMMAND or RESPONSE.\n", S.stream_id, desc)
		}

	case frame_type_U_UI:
		// Don't test at this point in case an APRS frame gets thru.
		// APRS doesn't specify what to put in the Source and Dest C bits.
		// In practice we see all 4 possible combinations.

	case frame_type_U, frame_not_AX25:
		// not expected.
	}

	switch ftype {

	case frame_type_I: // Information

		var pid = ax25_get_pid(E.pp)
		var info = ax25_get_info(E.pp)

		i_frame(S, cr, pf, nr, ns, pid, info)

	case frame_type_S_RR: // Receive Ready - System Ready To Receive
		rr_rnr_frame(S, true, cr, pf, nr)

	case frame_type_S_RNR: // Receive Not Ready - TNC Buffer Full
		rr_rnr_frame(S, false, cr, pf, nr)

	case frame_type_S_REJ: // Reject Frame - Out of Sequence or Duplicate
		rej_frame(S, cr, pf, nr)

	case frame_type_S_SREJ: // Selective Reject - Ask for selective frame(s) repeat
		srej_frame(S, cr, pf, nr, ax25_get_info(E.pp))

	case frame_type_U_SABME: // Set Async Balanced Mode, Extended
		sabm_e_frame(S, true, pf)

	case frame_type_U_SABM: // Set Async Balanced Mode
		sabm_e_frame(S, false, pf)

	case frame_type_U_DISC: // Disconnect
		disc_frame(S, pf)

	case frame_type_U_DM: // Disconnect Mode
		dm_frame(S, pf)

	case frame_type_U_UA: // Unnumbered Acknowledge
		ua_frame(S, pf)

	case frame_type_U_FRMR: // Frame Reject
		frmr_frame(S)

	case frame_type_U_UI: // Unnumbered Information
		ui_frame(S, cr, pf)

	case frame_type_U_XID: // Exchange Identification
		xid_frame(S, cr, pf, ax25_get_info(E.pp))

	case frame_type_U_TEST: // Test
		test_frame(S, cr, pf, ax25_get_info(E.pp))

	case frame_type_U: // other Unnumbered, not used by AX.25.

	case frame_not_AX25: // Could not get control byte from frame.
	}

	// An incoming frame might have ack'ed frames we sent or indicated peer is no longer busy.
	// Rather than putting this test in many places, where those conditions may have changed,
	// we will try to catch them all on this single path.
	// Start transmission if we now have some outgoing data ready to go.

	if S.i_frame_queue != nil &&
		(S.state == state_3_connected || S.state == state_4_timer_recovery) &&
		!S.peer_receiver_busy &&
		WITHIN_WINDOW_SIZE(S) {

		lm_seize_request(S._chan)
	}

} /* end lm_data_indication */

/*------------------------------------------------------------------------------
 *
 * Name:	i_frame
 *
 * Purpose:	Process I Frame.
 *
 * Inputs:	S	- Data Link State Machine.
 *		cr	- Command or Response.  We have already issued an error if not command.
 *		p	- Poll bit.  Assuming we checked earlier that it was a command.
 *		nr	- N(R) from the frame.  Next expected seq. for other end.
 *		ns	- N(S) from the frame.  Seq. number of this incoming frame.
 *		pid	- protocol id.
 *		info	- information part of frame.
 *			  Should be in range of 0 thru n1_paclen bytes.
 *
 * Description:
 *		6.4.2. Receiving I Frames
 *
 *		If a TNC receives a valid I frame (one with a correct FCS and whose
 *		send sequence number equals the receiver's receive state variable)
 *		and is not in the busy condition, it accepts the received I frame,
 *		increments its receive state variable, and responds with either an
 *		I frame, if one is ready to send, or an RR frame, with the
 *		transmitted N(R) equal to its receive state variable V(R).
 *
 *		6.4.6. Receiving Acknowledgement
 *
 *		Whenever an I or S frame is correctly received, even in a busy
 *		condition, the N(R) of the received frame is checked to see if it
 *		includes an acknowledgement of outstanding sent I frames.  The T1
 *		timer is canceled if the received frame actually acknowledges
 *		previously unacknowledged frames.  If the T1 timer is canceled and
 *		there are still some frames that have been sent that are not
 *		acknowledged, T1 is started again.
 *
 *		6.2. Poll/Final (P/F) Bit Procedures
 *
 *		The next response frame returned to an I frame with the P bit set
 *		to "1", received during the information transfer state, is an RR,
 *		RNR or REJ response with the F bit set to "1".
 *
 *		The next response frame returned to an S or I command frame with
 *		the P bit set to "1", received in the disconnected state, is a DM
 *		response frame with the F bit set to "1".
 *
 *------------------------------------------------------------------------------*/

func i_frame(S *ax25_dlsm_t, cr cmdres_t, p int, nr int, ns int, pid int, info []byte) {

	switch S.state {

	case state_0_disconnected:

		// Logic from flow chart for "all other commands."

		if cr == cr_cmd {
			var r cmdres_t = cr_res // DM response with F taken from P.
			var f = p
			var nopid = 0 // PID applies only for I and UI frames.

			var pp = ax25_u_frame(S.addrs, S.num_addr, r, frame_type_U_DM, f, nopid, nil)
			lm_data_request(S._chan, TQ_PRIO_1_LO, pp)
		}

	case state_1_awaiting_connection, state_5_awaiting_v22_connection:

		// Ignore it.  Keep same state.

	case state_2_awaiting_release:

		// Logic from flow chart for "I, RR, RNR, REJ, SREJ commands."

		if cr == cr_cmd && p == 1 {
			var r cmdres_t = cr_res // DM response with F = 1.
			var f = 1
			var nopid = 0

			var pp = ax25_u_frame(S.addrs, S.num_addr, r, frame_type_U_DM, f, nopid, nil)
			lm_data_request(S._chan, TQ_PRIO_1_LO, pp)
		}

	case state_3_connected, state_4_timer_recovery:

		// Erratum: SDL asks: Is information field length <= N1 (paclen).
		// Just because we are limiting the size of our transmitted data, it
		// doesn't mean that the other end will be doing the same.  With v2.2,
		// the XID frame can be used to negotiate a maximum info length but
		// with v2.0, there is no way for the other end to know our paclen value.

		if len(info) <= AX25_MAX_INFO_LEN {

			if is_good_nr(S, nr) {

				// Pattern noticed:  Anytime we have "is_good_nr" which tests for
				// V(A) <= N(R) <= V(S), we should always call "check_i_frame_ackd"
				// or at least set V(A) from N(R).

				// (2006 revision - states 3 & 4 are the same here.)

				check_i_frame_ackd(S, nr)

				// We sometimes got stuck in state 4 and rc crept up slowly even
				// though we received I frames with N(R) values indicating that the
				// other side received everything that we sent.  Eventually rc
				// could reach the limit and we would get an error.
				// If we are in state 4, and other guy ack'ed last I frame we sent,
				// transition to state 3.

				if S.state == state_4_timer_recovery && S.va == S.vs {

					STOP_T1(S)
					select_t1_value(S)
					START_T3(S)
					SET_RC(S, 0)
					enter_new_state(S, state_3_connected)
				}

				if S.own_receiver_busy {
					// This should be unreachable because we currently don't have
					// a way to set own_receiver_busy.

					if p == 1 {
						var r cmdres_t = cr_res // Erratum: The use of "F" in the flow chart
						// implies that RNR is a response in this case, but I'm not
						// confident about that.  The text says frame.
						var f = 1

						var pp = ax25_s_frame(S.addrs, S.num_addr, r, frame_type_S_RNR, S.modulo, S.vr, f, nil)
						lm_data_request(S._chan, TQ_PRIO_1_LO, pp)

						S.acknowledge_pending = false
					}
				} else { // Own receiver not busy.

					i_frame_continued(S, p, ns, pid, info)
				}

			} else { // N(R) not in expected range.

				nr_error_recovery(S)
				// If we were using v2.2, try to reestablish with that rather
				// than falling all the way back to v2.0.
				if S.modulo == 128 {
					enter_new_state(S, state_5_awaiting_v22_connection)
				} else {
					enter_new_state(S, state_1_awaiting_connection)
				}
			}
		} else { // Bad information length.
			// Wouldn't even get to CRC check if not octet aligned.

			text_color_set(DW_COLOR_ERROR)
			dw_printf("Stream %d: AX.25 Protocol Error O: Information part length, %d, not in range of 0 thru %d.\n", S.stream_id, len(info), AX25_MAX_INFO_LEN)

			establish_data_link(S)
			S.layer_3_initiated = false

			// The original spec always sent SABM and went to state 1.
			// establish_data_link already uses SABME or SABM based on S.modulo
			// so stay with v2.2 if that is what we were using.

			if S.modulo == 128 {
				enter_new_state(S, state_5_awaiting_v22_connection)
			} else {
				enter_new_state(S, state_1_awaiting_connection)
			}
		}
	}

} /* end i_frame */

/*------------------------------------------------------------------------------
 *
 * Name:	i_frame_continued
 *
 * Purpose:	The I frame processing logic gets pretty complicated.
 *		Some of it has been split out into a separate function to make
 *		things more readable.
 *		We have already done some error checking and processed N(R).
 *		This is used for both states 3 & 4.
 *
 * Inputs:	S	- Data Link State Machine.
 *		p	- Poll bit.
 *		ns	- N(S) from the frame.  Seq. number of this incoming frame.
 *		pid	- protocol id.
 *		info	- information part of frame.  Length already verified.
 *
 * Description:
 *
 *		6.4.4. Reception of Out-of-Sequence Frames
 *
 *		6.4.4.1. Implicit Reject (REJ)
 *
 *		When an I frame is received with a correct FCS but its send
 *		sequence number N(S) does not match the current receiver's receive
 *		state variable, the frame is discarded.  A REJ frame is sent with a
 *		receive sequence number equal to one higher than the last correctly
 *		received I frame if an uncleared N(S) sequence error condition has
 *		not been previously established.  The received state variable and
 *		poll bit of the discarded frame is checked and acted upon, if
 *		necessary.
 *
 *		6.4.4.2. Selective Reject (SREJ)
 *
 *		When an I frame is received with a correct FCS but its send
 *		sequence number N(S) does not match the current receiver's receive
 *		state variable, the frame is retained.  SREJ frames are sent with a
 *		receive sequence number equal to the value N(R) of the missing
 *		frame, and P=1 if an uncleared SREJ condition has not been
 *		previously established.  If an SREJ condition is already pending,
 *		an SREJ will be sent with P=0.  The received state variable and
 *		poll bit of the received frame are checked and acted upon, if
 *		necessary.
 *
 *------------------------------------------------------------------------------*/

func i_frame_continued(S *ax25_dlsm_t, p int, ns int, pid int, info []byte) {

	if ns == S.vr {

		// The receive sequence number, N(S), is the same as what we were expecting, V(R).
		// Send it to the application and increment the next expected.
		// It is possible that this was resent and we tucked away others with the
		// following sequence numbers.  If so, process them too.

		SET_VR(S, AX25MODULO(S.vr+1, S.modulo))
		S.reject_exception = false

		if s_debug_client_app > 0 {
			text_color_set(DW_COLOR_DEBUG)
			dw_printf("call dl_data_indication(), N(S)=%d, V(R)=%d, \"", ns, S.vr)
			ax25_safe_print(info, true)
			dw_printf("\"\n")
		}

		dl_data_indication(S, pid, info)

		if S.rxdata_by_ns[ns] != nil {
			// There is a possibility that we might have another received frame
			// stashed away from 8 or 128 (modulo) frames back.  Remove it so it
			// doesn't accidentally show up at some future inopportune time.

			cdata_delete(S.rxdata_by_ns[ns])
			S.rxdata_by_ns[ns] = nil
		}

		for S.rxdata_by_ns[S.vr] != nil {

			// dl_data_indication - send connected data to client application.

			if s_debug_client_app > 0 {
				text_color_set(DW_COLOR_DEBUG)
				dw_printf("call dl_data_indication(), N(S)=%d, V(R)=%d, data=\"", ns, S.vr)
				ax25_safe_print(S.rxdata_by_ns[S.vr].data, true)
				dw_printf("\"\n")
			}

			dl_data_indication(S, S.rxdata_by_ns[S.vr].pid, S.rxdata_by_ns[S.vr].data)

			// Don't keep around anymore after sending it to client app.

			cdata_delete(S.rxdata_by_ns[S.vr])
			S.rxdata_by_ns[S.vr] = nil

			SET_VR(S, AX25MODULO(S.vr+1, S.modulo))
		}

		if p != 0 {

			// Mentioned in section 6.2.
			// The next response frame returned to an I frame with the P bit set
			// to "1", received during the information transfer state, is an RR,
			// RNR or REJ response with the F bit set to "1".

			var f = 1
			var nr = S.vr           // Next expected sequence number.
			var cr cmdres_t = cr_res // response with F set to 1.

			var pp = ax25_s_frame(S.addrs, S.num_addr, cr, frame_type_S_RR, S.modulo, nr, f, nil)
			lm_data_request(S._chan, TQ_PRIO_1_LO, pp)
			S.acknowledge_pending = false
		} else if !S.acknowledge_pending {

			S.acknowledge_pending = true // Set this before the LM-SEIZE Request
			// in case the LM-SEIZE Confirm gets processed before we
			// return from it.

			// Force start of transmission even if the transmit frame queue is empty.
			// Notify me, with lm_seize_confirm, when transmission has started.
			// When that event arrives, we check acknowledge_pending and send
			// something to be determined later.

			lm_seize_request(S._chan)
		}
	} else if S.reject_exception {

		// This is not the sequence we were expecting.
		// We previously sent REJ, asking for a resend so don't send another.
		// In this case, send RR only if the Poll bit is set.
		// Again, reference section 6.2.

		if p != 0 {
			var f = 1
			var nr = S.vr           // Next expected sequence number.
			var cr cmdres_t = cr_res // response with F set to 1.

			var pp = ax25_s_frame(S.addrs, S.num_addr, cr, frame_type_S_RR, S.modulo, nr, f, nil)
			lm_data_request(S._chan, TQ_PRIO_1_LO, pp)
			S.acknowledge_pending = false
		}
	} else if S.srej_enable == srej_none {

		// The received sequence number is not the expected one and we can't use SREJ.
		// The old v2.0 approach is to send a REJ with the number we are expecting.
		// This can be very inefficient.  For example if we received 1,3,4,5,6 in
		// one transmission, we discard 3,4,5,6, and tell the other end to resend
		// everything starting with 2.

		// At one time, I had some doubts about when to use command or response for
		// REJ.  I now believe that response, as implied by setting F in the flow
		// chart, is correct.

		var f = p
		var nr = S.vr           // Next expected sequence number.
		var cr cmdres_t = cr_res // response with F copied from P in I frame.

		S.reject_exception = true

		if s_debug_retry > 0 {
			text_color_set(DW_COLOR_ERROR) // make it more noticeable.
			dw_printf("sending REJ, SREJ not enabled case, V(R)=%d", S.vr)
		}

		var pp = ax25_s_frame(S.addrs, S.num_addr, cr, frame_type_S_REJ, S.modulo, nr, f, nil)
		lm_data_request(S._chan, TQ_PRIO_1_LO, pp)

		S.acknowledge_pending = false
	} else {

		// Selective reject is enabled so we can use the more efficient method.
		// This is normally enabled for v2.2 but XID can be used to change that.
		// First we save the current frame so we can retrieve it later after
		// getting the fill in.

		if S.modulo != 128 {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("INTERNAL ERROR: Should not be sending SREJ in basic (modulo 8) mode.\n")
		}

		// Erratum:  AX.25 protocol spec did not handle SREJ very well.
		// Based on X.25 section 2.4.6.4.

		if is_ns_in_window(S, ns) {

			// X.25 2.4.6.4 (b)
			// V(R) < N(S) < V(R)+k so it is in the expected range.
			// Save it in the receive buffer.

			if S.rxdata_by_ns[ns] != nil {
				cdata_delete(S.rxdata_by_ns[ns])
				S.rxdata_by_ns[ns] = nil
			}
			S.rxdata_by_ns[ns] = cdata_new(pid, info)

			if s_debug_misc > 0 {
				dw_printf("save to rxdata_by_ns N(S)=%d, V(R)=%d, \"", ns, S.vr)
				ax25_safe_print(info, true)
				dw_printf("\"\n")
			}

			if p == 1 {
				var f = 1
				enquiry_response(S, frame_type_I, f)
			} else if S.own_receiver_busy {
				var cr cmdres_t = cr_res // send RNR response
				var f = 0               // we know p=0 here.

				var pp = ax25_s_frame(S.addrs, S.num_addr, cr, frame_type_S_RNR, S.modulo, S.vr, f, nil)
				lm_data_request(S._chan, TQ_PRIO_1_LO, pp)
			} else if S.rxdata_by_ns[AX25MODULO(ns-1, S.modulo)] == nil {

				// Ask for missing frames when we don't have N(S)-1 in the receive buffer.

				// We don't want to generate duplicate requests for gaps in the
				// same transmission, so send only for this gap, not cumulative
				// from V(R).

				// Ideally, we might wait until carrier drops and then use one
				// Multi-SREJ for the entire transmission but we will keep that
				// for another day.

				var ask_for_resend [128]int
				var ask_resend_count = 0

				// Erratum:  AX.25 says use F=0 here.  Doesn't make sense.
				// We would want to set F when sending N(R) = V(R).
				var allow_f1 = 1 // F=1 from X.25 2.4.6.4 b) 3)

				var last = AX25MODULO(ns-1, S.modulo)
				var first = last
				for first != S.vr && S.rxdata_by_ns[AX25MODULO(first-1, S.modulo)] == nil {
					first = AX25MODULO(first-1, S.modulo)
				}
				var x = first
				for {
					ask_for_resend[ask_resend_count] = AX25MODULO(x, S.modulo)
					ask_resend_count++
					x = AX25MODULO(x+1, S.modulo)
					if x == AX25MODULO(last+1, S.modulo) {
						break
					}
				}

				send_srej_frames(S, ask_for_resend[:ask_resend_count], allow_f1)
			}
		} else {

			// X.25 2.4.6.4 a)
			// N(S) is not in expected range.  Discard it.  Send response if P=1.

			if p == 1 {
				var f = 1
				enquiry_response(S, frame_type_I, f)
			}
		}
	}

} /* end i_frame_continued */

/*------------------------------------------------------------------------------
 *
 * Name:	is_ns_in_window
 *
 * Purpose:	Is the N(S) value of the incoming I frame in the expected range?
 *
 * Inputs:	ns		- Sequence from I frame.
 *
 * Description:	With selective reject, it is possible that I frames could
 *		arrive out of sequence.  We can save the information fields
 *		and not ask for a retransmission if one or more in the middle
 *		are still missing.
 *
 *		We can't use the window size k, like the WITHIN_WINDOW_SIZE
 *		test for sending, because the sender could have k larger
 *		than ours.  Use a generous value instead.
 *
 *------------------------------------------------------------------------------*/

const GENEROUS_K = 63

func is_ns_in_window(S *ax25_dlsm_t, ns int) bool {

	var adjusted_vr = 0
	var adjusted_ns = AX25MODULO(ns-S.vr, S.modulo)

	var result = adjusted_vr < adjusted_ns && adjusted_ns < GENEROUS_K

	if s_debug_misc > 0 {
		dw_printf("is_ns_in_window,  ns %d, vr %d, adjusted ns %d, result %t\n", ns, S.vr, adjusted_ns, result)
	}

	return (result)
}

/*------------------------------------------------------------------------------
 *
 * Name:	send_srej_frames
 *
 * Purpose:	Ask for a resend of I frames with specified sequence numbers.
 *
 * Inputs:	resend		- Array of N(S) values for missing I frames.
 *
 *		allow_f1	- When true, set F=1 when asking for V(R).
 *
 * Description:	With the "multi-SREJ" option, the additional sequence numbers
 *		are packed into the information part of a single SREJ frame.
 *		Otherwise, a separate SREJ is sent for each missing frame.
 *
 *		Lower 3 bits (or 7 for modulo 128) of the N(R) field are not
 *		used so the sequence numbers are shifted over before being
 *		placed in the information part.
 *
 *------------------------------------------------------------------------------*/

func send_srej_frames(S *ax25_dlsm_t, resend []int, allow_f1 int) {

	if len(resend) <= 0 {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("INTERNAL ERROR, Stream %d: send_srej_frames, count=%d\n", S.stream_id, len(resend))
		return
	}

	if len(resend) > S.k_maxframe {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("INTERNAL ERROR, Stream %d: send_srej_frames, extreme count=%d, k=%d\n", S.stream_id, len(resend), S.k_maxframe)
		dw_printf("state=%d, vs=%d, vr=%d, va=%d\n", S.state, S.vs, S.vr, S.va)
		for n := range resend {
			dw_printf("resend[%d] = %d\n", n, resend[n])
		}
	}

	if s_debug_retry > 0 {
		text_color_set(DW_COLOR_INFO)
		dw_printf("Stream %d: send_srej_frames, count=%d, allow_f1=%d :", S.stream_id, len(resend), allow_f1)
		for n := range resend {
			dw_printf(" %d", resend[n])
		}
		dw_printf("\n")
	}

	if S.srej_enable == srej_multi && len(resend) > 1 {

		// One frame with the first sequence in N(R) and the
		// rest in the information part.

		var info []byte
		for i := 1; i < len(resend); i++ {
			if S.modulo == modulo_128 {
				info = append(info, byte(resend[i]<<1))
			} else {
				info = append(info, byte(resend[i]<<5))
			}
		}

		var nr = resend[0]
		var f = 0
		if allow_f1 != 0 && nr == S.vr {
			f = 1
		}
		if f == 1 {
			S.acknowledge_pending = false
		}

		if nr < 0 || nr >= int(S.modulo) {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("INTERNAL ERROR, Stream %d: send_srej_frames, nr=%d\n", S.stream_id, nr)
			nr = AX25MODULO(nr, S.modulo)
		}

		var pp = ax25_s_frame(S.addrs, S.num_addr, cr_res, frame_type_S_SREJ, S.modulo, nr, f, info)
		lm_data_request(S._chan, TQ_PRIO_1_LO, pp)
		return
	}

	// Multi-SREJ not enabled.  Send separate SREJ for each.

	for n := range resend {

		var nr = resend[n]
		var f = 0
		if allow_f1 != 0 && nr == S.vr {
			f = 1
		}
		if f == 1 {
			S.acknowledge_pending = false
		}

		if nr < 0 || nr >= int(S.modulo) {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("INTERNAL ERROR, Stream %d: send_srej_frames, nr=%d\n", S.stream_id, nr)
			nr = AX25MODULO(nr, S.modulo)
		}

		var pp = ax25_s_frame(S.addrs, S.num_addr, cr_res, frame_type_S_SREJ, S.modulo, nr, f, nil)
		lm_data_request(S._chan, TQ_PRIO_1_LO, pp)
	}
}

/*------------------------------------------------------------------------------
 *
 * Name:	rr_rnr_frame
 *
 * Purpose:	Process RR or RNR Frame.
 *
 * Inputs:	S	- Data Link State Machine.
 *		ready	- true for RR, false for RNR.
 *		cr	- Is this command or response?
 *		pf	- Poll/Final bit.
 *		nr	- N(R) from the frame.
 *
 * Description:	Processing is the same for both so they are combined.
 *
 *		RR indicates that the peer is ready to receive more I frames
 *		and acknowledges frames up thru N(R)-1.
 *		RNR is the same except the peer is temporarily unable to
 *		accept additional I frames.
 *
 *------------------------------------------------------------------------------*/

func rr_rnr_frame(S *ax25_dlsm_t, ready bool, cr cmdres_t, pf int, nr int) {

	switch S.state {

	case state_0_disconnected:

		if cr == cr_cmd {
			var f = pf
			var pp = ax25_u_frame(S.addrs, S.num_addr, cr_res, frame_type_U_DM, f, 0, nil)
			lm_data_request(S._chan, TQ_PRIO_1_LO, pp)
		}

	case state_1_awaiting_connection, state_5_awaiting_v22_connection:

		// do nothing.

	case state_2_awaiting_release:

		if cr == cr_cmd && pf == 1 {
			var f = 1
			var pp = ax25_u_frame(S.addrs, S.num_addr, cr_res, frame_type_U_DM, f, 0, nil)
			lm_data_request(S._chan, TQ_PRIO_0_HI, pp)
		}

	case state_3_connected:

		S.peer_receiver_busy = !ready

		if cr == cr_cmd && pf == 1 {
			if ready {
				check_need_for_response(S, frame_type_S_RR, cr, pf)
			} else {
				check_need_for_response(S, frame_type_S_RNR, cr, pf)
			}
		}

		if is_good_nr(S, nr) {
			check_i_frame_ackd(S, nr)
		} else {
			if s_debug_protocol_errors > 0 {
				text_color_set(DW_COLOR_ERROR)
				if ready {
					dw_printf("Stream %d: AX.25 Protocol Error, N(r) from RR: %d it not in range V(a) = %d thru V(s) = %d.\n", S.stream_id, nr, S.va, S.vs)
				} else {
					dw_printf("Stream %d: AX.25 Protocol Error, N(r) from RNR: %d it not in range V(a) = %d thru V(s) = %d.\n", S.stream_id, nr, S.va, S.vs)
				}
			}
			nr_error_recovery(S)
			if S.modulo == modulo_128 {
				enter_new_state(S, state_5_awaiting_v22_connection)
			} else {
				enter_new_state(S, state_1_awaiting_connection)
			}
		}

	case state_4_timer_recovery:

		S.peer_receiver_busy = !ready

		if cr == cr_res && pf == 1 {

			STOP_T1(S)
			select_t1_value(S)

			if is_good_nr(S, nr) {

				SET_VA(S, nr)
				if S.vs == S.va {
					START_T3(S)
					SET_RC(S, 0)
					enter_new_state(S, state_3_connected)
				} else {
					invoke_retransmission(S, nr)
					STOP_T3(S)
					START_T1(S)
					S.acknowledge_pending = false
				}
			} else {
				if s_debug_protocol_errors > 0 {
					text_color_set(DW_COLOR_ERROR)
					if ready {
						dw_printf("Stream %d: AX.25 Protocol Error, N(r) from RR: %d it not in range V(a) = %d thru V(s) = %d.\n", S.stream_id, nr, S.va, S.vs)
					} else {
						dw_printf("Stream %d: AX.25 Protocol Error, N(r) from RNR: %d it not in range V(a) = %d thru V(s) = %d.\n", S.stream_id, nr, S.va, S.vs)
					}
				}
				nr_error_recovery(S)
				if S.modulo == modulo_128 {
					enter_new_state(S, state_5_awaiting_v22_connection)
				} else {
					enter_new_state(S, state_1_awaiting_connection)
				}
			}
		} else {

			if cr == cr_cmd && pf == 1 {
				var f = 1
				if ready {
					enquiry_response(S, frame_type_S_RR, f)
				} else {
					enquiry_response(S, frame_type_S_RNR, f)
				}
			}

			if is_good_nr(S, nr) {

				SET_VA(S, nr)

				if cr == cr_res && pf == 0 && S.vs == S.va {
					STOP_T1(S)
					select_t1_value(S)
					START_T3(S)
					SET_RC(S, 0)
					enter_new_state(S, state_3_connected)
				}
			} else {
				if s_debug_protocol_errors > 0 {
					text_color_set(DW_COLOR_ERROR)
					if ready {
						dw_printf("Stream %d: AX.25 Protocol Error, N(r) from RR: %d it not in range V(a) = %d thru V(s) = %d.\n", S.stream_id, nr, S.va, S.vs)
					} else {
						dw_printf("Stream %d: AX.25 Protocol Error, N(r) from RNR: %d it not in range V(a) = %d thru V(s) = %d.\n", S.stream_id, nr, S.va, S.vs)
					}
				}
				nr_error_recovery(S)
				if S.modulo == modulo_128 {
					enter_new_state(S, state_5_awaiting_v22_connection)
				} else {
					enter_new_state(S, state_1_awaiting_connection)
				}
			}
		}
	}
}

/*------------------------------------------------------------------------------
 *
 * Name:	rej_frame
 *
 * Purpose:	Process REJ Frame.
 *
 * Inputs:	S	- Data Link State Machine.
 *		cr	- Is this command or response?
 *		pf	- Poll/Final bit.
 *		nr	- N(R) from the frame.  Peer has asked for a resend
 *			  of all I frames starting with this value.
 *
 *------------------------------------------------------------------------------*/

func rej_frame(S *ax25_dlsm_t, cr cmdres_t, pf int, nr int) {

	switch S.state {

	case state_0_disconnected:

		if cr == cr_cmd {
			var f = pf
			var pp = ax25_u_frame(S.addrs, S.num_addr, cr_res, frame_type_U_DM, f, 0, nil)
			lm_data_request(S._chan, TQ_PRIO_1_LO, pp)
		}

	case state_1_awaiting_connection, state_5_awaiting_v22_connection:

		// do nothing.

	case state_2_awaiting_release:

		if cr == cr_cmd && pf == 1 {
			var f = 1
			var pp = ax25_u_frame(S.addrs, S.num_addr, cr_res, frame_type_U_DM, f, 0, nil)
			lm_data_request(S._chan, TQ_PRIO_0_HI, pp)
		}

	case state_3_connected:

		S.peer_receiver_busy = false

		check_need_for_response(S, frame_type_S_REJ, cr, pf)

		if is_good_nr(S, nr) {

			SET_VA(S, nr)
			STOP_T1(S)
			STOP_T3(S)
			select_t1_value(S)

			invoke_retransmission(S, nr)
			START_T1(S)
			S.acknowledge_pending = false
		} else {
			if s_debug_protocol_errors > 0 {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("Stream %d: AX.25 Protocol Error, N(r) from REJ: %d it not in range V(a) = %d thru V(s) = %d.\n", S.stream_id, nr, S.va, S.vs)
			}
			nr_error_recovery(S)
			if S.modulo == modulo_128 {
				enter_new_state(S, state_5_awaiting_v22_connection)
			} else {
				enter_new_state(S, state_1_awaiting_connection)
			}
		}

	case state_4_timer_recovery:

		S.peer_receiver_busy = false

		if cr == cr_res && pf == 1 {

			STOP_T1(S)
			select_t1_value(S)

			if is_good_nr(S, nr) {

				SET_VA(S, nr)
				if S.vs == S.va {
					START_T3(S)
					SET_RC(S, 0)
					enter_new_state(S, state_3_connected)
				} else {
					invoke_retransmission(S, nr)
					STOP_T3(S)
					START_T1(S)
					S.acknowledge_pending = false
				}
			} else {
				if s_debug_protocol_errors > 0 {
					text_color_set(DW_COLOR_ERROR)
					dw_printf("Stream %d: AX.25 Protocol Error, N(r) from REJ: %d it not in range V(a) = %d thru V(s) = %d.\n", S.stream_id, nr, S.va, S.vs)
				}
				nr_error_recovery(S)
				if S.modulo == modulo_128 {
					enter_new_state(S, state_5_awaiting_v22_connection)
				} else {
					enter_new_state(S, state_1_awaiting_connection)
				}
			}
		} else {

			if cr == cr_cmd && pf == 1 {
				var f = 1
				enquiry_response(S, frame_type_S_REJ, f)
			}

			if is_good_nr(S, nr) {

				SET_VA(S, nr)

				if S.vs != S.va {
					invoke_retransmission(S, nr)
					STOP_T3(S)
					START_T1(S)
					S.acknowledge_pending = false
				}
			} else {
				if s_debug_protocol_errors > 0 {
					text_color_set(DW_COLOR_ERROR)
					dw_printf("Stream %d: AX.25 Protocol Error, N(r) from REJ: %d it not in range V(a) = %d thru V(s) = %d.\n", S.stream_id, nr, S.va, S.vs)
				}
				nr_error_recovery(S)
				if S.modulo == modulo_128 {
					enter_new_state(S, state_5_awaiting_v22_connection)
				} else {
					enter_new_state(S, state_1_awaiting_connection)
				}
			}
		}
	}
}

/*------------------------------------------------------------------------------
 *
 * Name:	srej_frame
 *
 * Purpose:	Process SREJ Frame.
 *
 * Inputs:	S	- Data Link State Machine.
 *		cr	- Is this command or response?
 *		f	- Final bit.  (Put into "p" or "pf" field of caller.)
 *		nr	- N(R) from the frame.  Peer asks for a resend of
 *			  only this one frame.
 *		info	- Information field for the multi-SREJ case which
 *			  can hold additional sequence numbers.
 *
 * Description:	SREJ is only used for modulo 128 operation.
 *
 *		When F=1, this also acknowledges all frames up thru N(R)-1.
 *
 *------------------------------------------------------------------------------*/

func srej_frame(S *ax25_dlsm_t, cr cmdres_t, f int, nr int, info []byte) {

	switch S.state {

	case state_0_disconnected:

		// do nothing.

	case state_1_awaiting_connection, state_5_awaiting_v22_connection:

		// do nothing.

	case state_2_awaiting_release:

		// do nothing.

	case state_3_connected:

		S.peer_receiver_busy = false

		if is_good_nr(S, nr) {

			if f != 0 {
				SET_VA(S, nr)
			}

			STOP_T1(S)
			START_T3(S)
			select_t1_value(S)

			var num_resent = resend_for_srej(S, nr, info)
			if num_resent > 0 {
				STOP_T3(S)
				START_T1(S)
				S.acknowledge_pending = false
			}
		} else {
			if s_debug_protocol_errors > 0 {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("Stream %d: AX.25 Protocol Error, N(r) from SREJ: %d it not in range V(a) = %d thru V(s) = %d.\n", S.stream_id, nr, S.va, S.vs)
			}
			nr_error_recovery(S)
			if S.modulo == modulo_128 {
				enter_new_state(S, state_5_awaiting_v22_connection)
			} else {
				enter_new_state(S, state_1_awaiting_connection)
			}
		}

	case state_4_timer_recovery:

		S.peer_receiver_busy = false

		STOP_T1(S)
		select_t1_value(S)

		if is_good_nr(S, nr) {

			if f != 0 {
				SET_VA(S, nr)
			}

			if S.vs == S.va {
				START_T3(S)
				SET_RC(S, 0)
				enter_new_state(S, state_3_connected)
			} else {
				var num_resent = resend_for_srej(S, nr, info)
				if num_resent > 0 {
					STOP_T3(S)
					START_T1(S)
					S.acknowledge_pending = false
				}
			}
		} else {
			if s_debug_protocol_errors > 0 {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("Stream %d: AX.25 Protocol Error, N(r) from SREJ: %d it not in range V(a) = %d thru V(s) = %d.\n", S.stream_id, nr, S.va, S.vs)
			}
			nr_error_recovery(S)
			if S.modulo == modulo_128 {
				enter_new_state(S, state_5_awaiting_v22_connection)
			} else {
				enter_new_state(S, state_1_awaiting_connection)
			}
		}
	}
}

/*------------------------------------------------------------------------------
 *
 * Name:	resend_for_srej
 *
 * Purpose:	Resend the I frames specified in SREJ N(R) and optional
 *		information part.
 *
 * Inputs:	nr	- N(R) from SREJ, first sequence number to resend.
 *		info	- Additional sequence numbers for the multi-SREJ case,
 *			  shifted over as described in send_srej_frames.
 *
 * Returns:	Number of frames sent.  The caller needs this to know
 *		whether to restart T1.
 *
 *------------------------------------------------------------------------------*/

func resend_for_srej(S *ax25_dlsm_t, nr int, info []byte) int {

	var num_resent = 0
	var cr cmdres_t = cr_cmd
	var i_frame_nr = S.vr
	var p = 0

	var ns = nr
	if S.txdata_by_ns[ns] != nil {
		var pp = ax25_i_frame(S.addrs, S.num_addr, cr, S.modulo, i_frame_nr, ns, p, S.txdata_by_ns[ns].pid, S.txdata_by_ns[ns].data)
		lm_data_request(S._chan, TQ_PRIO_1_LO, pp)
		num_resent++
	} else {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Stream %d: INTERNAL ERROR for SREJ. I frame for N(S)=%d is not available.\n", S.stream_id, ns)
	}

	// Multi-SREJ includes additional sequence numbers in the
	// information part.

	for j := range info {
		if S.modulo == modulo_128 {
			ns = (int(info[j]) >> 1) & 0x7f
		} else {
			ns = (int(info[j]) >> 5) & 7
		}

		if S.txdata_by_ns[ns] != nil {
			var pp = ax25_i_frame(S.addrs, S.num_addr, cr, S.modulo, i_frame_nr, ns, p, S.txdata_by_ns[ns].pid, S.txdata_by_ns[ns].data)
			lm_data_request(S._chan, TQ_PRIO_1_LO, pp)
			num_resent++
		} else {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Stream %d: INTERNAL ERROR for Multi-SREJ. I frame for N(S)=%d is not available.\n", S.stream_id, ns)
		}
	}

	return (num_resent)
}

/*------------------------------------------------------------------------------
 *
 * Name:	sabm_e_frame
 *
 * Purpose:	Process SABM or SABME Frame.
 *
 * Inputs:	S	- Data Link State Machine.
 *		extended - true for SABME, false for SABM.
 *		p	- Poll bit.
 *
 * Description:	This is a request, from the other station, to establish a
 *		connection.  SABME means it speaks AX.25 version 2.2 and
 *		wants modulo 128 operation.
 *
 *------------------------------------------------------------------------------*/

func sabm_e_frame(S *ax25_dlsm_t, extended bool, p int) {

	switch S.state {

	case state_0_disconnected:

		// We are always willing to accept connections.
		// We wouldn't get this far if local callsigns were not registered.

		if extended {
			set_version_2_2(S)
		} else {
			set_version_2_0(S)
		}

		var f = p
		var pp = ax25_u_frame(S.addrs, S.num_addr, cr_res, frame_type_U_UA, f, 0, nil)
		lm_data_request(S._chan, TQ_PRIO_1_LO, pp)

		clear_exception_conditions(S)

		SET_VS(S, 0)
		SET_VA(S, 0)
		SET_VR(S, 0)

		text_color_set(DW_COLOR_INFO)
		if extended {
			dw_printf("Stream %d: Connected to %s.  (v2.2)\n", S.stream_id, S.addrs[PEERCALL])
		} else {
			dw_printf("Stream %d: Connected to %s.  (v2.0)\n", S.stream_id, S.addrs[PEERCALL])
		}

		server_link_established(S._chan, S.client, S.addrs[PEERCALL], S.addrs[OWNCALL], true)

		init_t1v_srt(S)

		START_T3(S)
		SET_RC(S, 0)
		enter_new_state(S, state_3_connected)

	case state_1_awaiting_connection:

		// Don't combine with state 5.  They are slightly different.

		if extended { // SABME - respond with DM, enter state 5.
			var f = p
			var pp = ax25_u_frame(S.addrs, S.num_addr, cr_res, frame_type_U_DM, f, 0, nil)
			lm_data_request(S._chan, TQ_PRIO_1_LO, pp)
			enter_new_state(S, state_5_awaiting_v22_connection)
		} else { // SABM - respond with UA, stay in state 1.
			var f = p
			var pp = ax25_u_frame(S.addrs, S.num_addr, cr_res, frame_type_U_UA, f, 0, nil)
			lm_data_request(S._chan, TQ_PRIO_1_LO, pp)
		}

	case state_5_awaiting_v22_connection:

		if extended { // SABME - respond with UA, stay in state 5.
			var f = p
			var pp = ax25_u_frame(S.addrs, S.num_addr, cr_res, frame_type_U_UA, f, 0, nil)
			lm_data_request(S._chan, TQ_PRIO_1_LO, pp)
		} else { // SABM - respond with UA, enter state 1.
			var f = p
			var pp = ax25_u_frame(S.addrs, S.num_addr, cr_res, frame_type_U_UA, f, 0, nil)
			lm_data_request(S._chan, TQ_PRIO_1_LO, pp)
			enter_new_state(S, state_1_awaiting_connection)
		}

	case state_2_awaiting_release:

		var f = p
		var pp = ax25_u_frame(S.addrs, S.num_addr, cr_res, frame_type_U_DM, f, 0, nil)
		lm_data_request(S._chan, TQ_PRIO_0_HI, pp) // expedited

	case state_3_connected, state_4_timer_recovery:

		var f = p
		var pp = ax25_u_frame(S.addrs, S.num_addr, cr_res, frame_type_U_UA, f, 0, nil)
		lm_data_request(S._chan, TQ_PRIO_1_LO, pp)

		if S.state == state_4_timer_recovery {
			if extended {
				set_version_2_2(S)
			} else {
				set_version_2_0(S)
			}
		}

		clear_exception_conditions(S)
		if s_debug_protocol_errors > 0 {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Stream %d: AX.25 Protocol Error F: Data Link reset; i.e. SABM(e) received in state %d.\n", S.stream_id, S.state)
		}
		if S.vs != S.va {
			discard_i_queue(S)
			server_link_established(S._chan, S.client, S.addrs[PEERCALL], S.addrs[OWNCALL], true)
		}
		STOP_T1(S)
		START_T3(S)
		SET_VS(S, 0)
		SET_VA(S, 0)
		SET_VR(S, 0)
		SET_RC(S, 0)
		enter_new_state(S, state_3_connected)
	}
}

/*------------------------------------------------------------------------------
 *
 * Name:	disc_frame
 *
 * Purpose:	Process DISC command.
 *
 * Inputs:	S	- Data Link State Machine.
 *		p	- Poll bit.
 *
 * Description:	The other station asks to terminate the link.  We reply
 *		with UA and enter disconnected state.  Any unacknowledged
 *		I frames remain unacknowledged.
 *
 *------------------------------------------------------------------------------*/

func disc_frame(S *ax25_dlsm_t, p int) {

	switch S.state {

	case state_0_disconnected, state_1_awaiting_connection, state_5_awaiting_v22_connection:

		var f = p
		var pp = ax25_u_frame(S.addrs, S.num_addr, cr_res, frame_type_U_DM, f, 0, nil)
		lm_data_request(S._chan, TQ_PRIO_1_LO, pp)
		// keep current state, 0, 1, or 5.

	case state_2_awaiting_release:

		var f = p
		var pp = ax25_u_frame(S.addrs, S.num_addr, cr_res, frame_type_U_UA, f, 0, nil)
		lm_data_request(S._chan, TQ_PRIO_0_HI, pp) // expedited
		// keep current state, 2.

	case state_3_connected, state_4_timer_recovery:

		discard_i_queue(S)

		var f = p
		var pp = ax25_u_frame(S.addrs, S.num_addr, cr_res, frame_type_U_UA, f, 0, nil)
		lm_data_request(S._chan, TQ_PRIO_1_LO, pp)

		text_color_set(DW_COLOR_INFO)
		dw_printf("Stream %d: Disconnected from %s.\n", S.stream_id, S.addrs[PEERCALL])
		server_link_terminated(S._chan, S.client, S.addrs[PEERCALL], S.addrs[OWNCALL], false)

		STOP_T1(S)
		STOP_T3(S)
		enter_new_state(S, state_0_disconnected)
	}
}

/*------------------------------------------------------------------------------
 *
 * Name:	dm_frame
 *
 * Purpose:	Process DM Response Frame.
 *
 * Inputs:	S	- Data Link State Machine.
 *		f	- Final bit.
 *
 * Description:	The other station sends DM when it is in disconnected mode
 *		or cannot accept a connection.
 *
 *		For state 5, some implementations respond to SABME with DM
 *		rather than FRMR when they don't understand v2.2, so treat
 *		DM the same as FRMR there and fall back to v2.0.
 *
 *------------------------------------------------------------------------------*/

func dm_frame(S *ax25_dlsm_t, f int) {

	switch S.state {

	case state_0_disconnected:

		// Do nothing.

	case state_1_awaiting_connection:

		if f == 1 {
			discard_i_queue(S)
			text_color_set(DW_COLOR_INFO)
			dw_printf("Stream %d: Disconnected from %s.\n", S.stream_id, S.addrs[PEERCALL])
			server_link_terminated(S._chan, S.client, S.addrs[PEERCALL], S.addrs[OWNCALL], false)
			STOP_T1(S)
			enter_new_state(S, state_0_disconnected)
		}

	case state_2_awaiting_release:

		if f == 1 {
			text_color_set(DW_COLOR_INFO)
			dw_printf("Stream %d: Disconnected from %s.\n", S.stream_id, S.addrs[PEERCALL])
			server_link_terminated(S._chan, S.client, S.addrs[PEERCALL], S.addrs[OWNCALL], false)
			STOP_T1(S)
			enter_new_state(S, state_0_disconnected)
		}

	case state_3_connected, state_4_timer_recovery:

		if s_debug_protocol_errors > 0 {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Stream %d: AX.25 Protocol Error E: DM received in state %d.\n", S.stream_id, S.state)
		}
		text_color_set(DW_COLOR_INFO)
		dw_printf("Stream %d: Disconnected from %s.\n", S.stream_id, S.addrs[PEERCALL])
		server_link_terminated(S._chan, S.client, S.addrs[PEERCALL], S.addrs[OWNCALL], false)
		discard_i_queue(S)
		STOP_T1(S)
		STOP_T3(S)
		enter_new_state(S, state_0_disconnected)

	case state_5_awaiting_v22_connection:

		if f == 1 {
			text_color_set(DW_COLOR_INFO)
			dw_printf("%s doesn't understand AX.25 v2.2.  Trying v2.0 ...\n", S.addrs[PEERCALL])

			init_t1v_srt(S)

			set_version_2_0(S)

			establish_data_link(S)
			S.layer_3_initiated = true
			enter_new_state(S, state_1_awaiting_connection)
		}
	}
}

/*------------------------------------------------------------------------------
 *
 * Name:	ua_frame
 *
 * Purpose:	Process UA Response Frame.
 *
 * Inputs:	S	- Data Link State Machine.
 *		f	- Final bit.
 *
 * Description:	The UA response acknowledges reception and acceptance of a
 *		SABM(E) or DISC command frame.
 *
 *------------------------------------------------------------------------------*/

func ua_frame(S *ax25_dlsm_t, f int) {

	switch S.state {

	case state_0_disconnected:

		if s_debug_protocol_errors > 0 {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Stream %d: AX.25 Protocol Error C: Unexpected UA in state %d.\n", S.stream_id, S.state)
		}

	case state_1_awaiting_connection, state_5_awaiting_v22_connection:

		if f == 1 {
			if S.layer_3_initiated {
				text_color_set(DW_COLOR_INFO)
				if S.state == state_5_awaiting_v22_connection {
					dw_printf("Stream %d: Connected to %s.  (v2.2)\n", S.stream_id, S.addrs[PEERCALL])
				} else {
					dw_printf("Stream %d: Connected to %s.  (v2.0)\n", S.stream_id, S.addrs[PEERCALL])
				}
				server_link_established(S._chan, S.client, S.addrs[PEERCALL], S.addrs[OWNCALL], false)
			} else if S.vs != S.va {

				init_t1v_srt(S)

				START_T3(S)

				text_color_set(DW_COLOR_INFO)
				if S.state == state_5_awaiting_v22_connection {
					dw_printf("Stream %d: Connected to %s.  (v2.2)\n", S.stream_id, S.addrs[PEERCALL])
				} else {
					dw_printf("Stream %d: Connected to %s.  (v2.0)\n", S.stream_id, S.addrs[PEERCALL])
				}
				server_link_established(S._chan, S.client, S.addrs[PEERCALL], S.addrs[OWNCALL], false)
			}

			STOP_T1(S)
			START_T3(S)
			SET_VS(S, 0)
			SET_VA(S, 0)
			SET_VR(S, 0)
			select_t1_value(S)

			// The initiating station sends an XID command after
			// receiving the UA, to negotiate v2.2 parameters.

			if S.state == state_5_awaiting_v22_connection {
				mdl_negotiate_request(S)
			}

			SET_RC(S, 0)
			enter_new_state(S, state_3_connected)
		} else {
			if s_debug_protocol_errors > 0 {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("Stream %d: AX.25 Protocol Error D: UA received without F=1 when SABM or DISC was sent P=1.\n", S.stream_id)
			}
			// stay in current state, either 1 or 5.
		}

	case state_2_awaiting_release:

		if f == 1 {
			text_color_set(DW_COLOR_INFO)
			dw_printf("Stream %d: Disconnected from %s.\n", S.stream_id, S.addrs[PEERCALL])
			server_link_terminated(S._chan, S.client, S.addrs[PEERCALL], S.addrs[OWNCALL], false)
			STOP_T1(S)
			enter_new_state(S, state_0_disconnected)
		} else {
			if s_debug_protocol_errors > 0 {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("Stream %d: AX.25 Protocol Error D: UA received without F=1 when SABM or DISC was sent P=1.\n", S.stream_id)
			}
		}

	case state_3_connected, state_4_timer_recovery:

		if s_debug_protocol_errors > 0 {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Stream %d: AX.25 Protocol Error C: Unexpected UA in state %d.\n", S.stream_id, S.state)
		}
		establish_data_link(S)
		S.layer_3_initiated = false
		if S.modulo == modulo_128 {
			enter_new_state(S, state_5_awaiting_v22_connection)
		} else {
			enter_new_state(S, state_1_awaiting_connection)
		}
	}
}

/*------------------------------------------------------------------------------
 *
 * Name:	frmr_frame
 *
 * Purpose:	Process FRMR Response Frame.
 *
 * Inputs:	S	- Data Link State Machine.
 *
 * Description:	We don't generate FRMR but could receive it from a station
 *		running an old version of the protocol.  Handle the error
 *		condition by resetting the link.
 *
 *		In state 5, FRMR means the other end did not understand the
 *		SABME so fall back to v2.0 and try SABM.
 *
 *------------------------------------------------------------------------------*/

func frmr_frame(S *ax25_dlsm_t) {

	switch S.state {

	case state_0_disconnected, state_1_awaiting_connection, state_2_awaiting_release:

		// Ignore it.  Keep current state.

	case state_3_connected, state_4_timer_recovery:

		if s_debug_protocol_errors > 0 {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Stream %d: AX.25 Protocol Error K: FRMR not expected in state %d.\n", S.stream_id, S.state)
		}

		set_version_2_0(S) // FRMR can only be sent by v2.0.
		establish_data_link(S)
		S.layer_3_initiated = false
		enter_new_state(S, state_1_awaiting_connection)

	case state_5_awaiting_v22_connection:

		text_color_set(DW_COLOR_INFO)
		dw_printf("%s doesn't understand AX.25 v2.2.  Trying v2.0 ...\n", S.addrs[PEERCALL])

		init_t1v_srt(S)

		set_version_2_0(S)

		establish_data_link(S)
		S.layer_3_initiated = true

		enter_new_state(S, state_1_awaiting_connection)
	}

	// If we were waiting for an XID response, this probably means
	// the other end does not understand XID.  Fall back to v2.0
	// parameters.

	switch S.mdl_state {

	case mdl_state_0_ready:
		// Nothing going on.

	case mdl_state_1_negotiating:

		set_version_2_0(S)
		S.mdl_state = mdl_state_0_ready
	}
}

/*------------------------------------------------------------------------------
 *
 * Name:	ui_frame
 *
 * Purpose:	Process UI frame received on a connected address pair.
 *
 * Inputs:	S	- Data Link State Machine.
 *		cr	- Is it command or response?
 *		pf	- Poll/Final bit.
 *
 * Description:	UI frames don't go thru here for normal operation.
 *		The only reason we have this function is so that we can
 *		send a response to a UI command with P=1.
 *
 *------------------------------------------------------------------------------*/

func ui_frame(S *ax25_dlsm_t, cr cmdres_t, pf int) {

	if cr == cr_cmd && pf == 1 {

		switch S.state {

		case state_0_disconnected, state_1_awaiting_connection, state_2_awaiting_release, state_5_awaiting_v22_connection:

			var pp = ax25_u_frame(S.addrs, S.num_addr, cr_res, frame_type_U_DM, pf, 0, nil)
			lm_data_request(S._chan, TQ_PRIO_1_LO, pp)

		case state_3_connected, state_4_timer_recovery:

			enquiry_response(S, frame_type_U_UI, pf)
		}
	}
}

/*------------------------------------------------------------------------------
 *
 * Name:	xid_frame
 *
 * Purpose:	Process XID frame for negotiating protocol parameters.
 *
 * Inputs:	S	- Data Link State Machine.
 *		cr	- Is it command or response?
 *		pf	- Poll/Final bit.
 *		info	- Information part with parameters in ISO 8885 format.
 *
 * Description:	An XID command comes from the other station wanting to
 *		negotiate parameters.  We take the minimum of what it wants
 *		and what we can do, adjust our working configuration, and
 *		send the result back in an XID response.
 *
 *		An XID response is the answer to an XID command we sent.
 *
 *------------------------------------------------------------------------------*/

func xid_frame(S *ax25_dlsm_t, cr cmdres_t, pf int, info []byte) {

	switch S.mdl_state {

	case mdl_state_0_ready:

		if cr == cr_cmd {
			if pf == 1 {

				var param, _, ok = xid_parse(info)

				if ok > 0 {
					negotiation_response(S, &param)

					var xinfo = xid_encode(&param, cr_res)

					var f = 1
					var pp = ax25_u_frame(S.addrs, S.num_addr, cr_res, frame_type_U_XID, f, 0, xinfo)
					lm_data_request(S._chan, TQ_PRIO_1_LO, pp)
				}
			} else {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("Stream %d: AX.25 Protocol Error MDL-A: XID command without P=1.\n", S.stream_id)
			}
		} else {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Stream %d: AX.25 Protocol Error MDL-B: Unexpected XID response.\n", S.stream_id)
		}

	case mdl_state_1_negotiating:

		if cr == cr_res {
			if pf == 1 {

				var param, _, ok = xid_parse(info)

				if ok > 0 {
					complete_negotiation(S, &param)
				}

				S.mdl_state = mdl_state_0_ready
				STOP_TM201(S)
			} else {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("Stream %d: AX.25 Protocol Error MDL-D: XID response without F=1.\n", S.stream_id)
			}
		} else {
			// Not expecting to receive a command when I sent one.
			// Drop it.  The other end can retry and maybe I will
			// be back to ready state by then.
		}
	}
}

/*------------------------------------------------------------------------------
 *
 * Name:	test_frame
 *
 * Purpose:	Process TEST command for checking link.
 *
 * Inputs:	S	- Data Link State Machine.
 *		cr	- Is it command or response?
 *		pf	- Poll/Final bit.
 *		info	- Any information sent with the command.
 *
 * Description:	The response sends back whatever was received in the command.
 *
 *------------------------------------------------------------------------------*/

func test_frame(S *ax25_dlsm_t, cr cmdres_t, pf int, info []byte) {

	if cr == cr_cmd {
		var f = pf
		var pp = ax25_u_frame(S.addrs, S.num_addr, cr_res, frame_type_U_TEST, f, 0, info)
		lm_data_request(S._chan, TQ_PRIO_1_LO, pp)
	}
}

/*------------------------------------------------------------------------------
 *
 * Name:	dl_timer_expiry
 *
 * Purpose:	Some timer expired.  Figure out which one and act accordingly.
 *
 * Description:	Examine all of the data link state machines.
 *		Process only those where the timer is running, is not paused,
 *		and the expiration time has arrived or passed.
 *
 *------------------------------------------------------------------------------*/

func dl_timer_expiry() {

	var now = dl_now()

	for p := list_head; p != nil; p = p.next {
		if !p.t1_exp.IsZero() && p.t1_paused_at.IsZero() && !p.t1_exp.After(now) {
			p.t1_exp = time.Time{}
			p.t1_paused_at = time.Time{}
			p.t1_had_expired = true
			t1_expiry(p)
		}
	}

	for p := list_head; p != nil; p = p.next {
		if !p.t3_exp.IsZero() && !p.t3_exp.After(now) {
			p.t3_exp = time.Time{}
			t3_expiry(p)
		}
	}

	for p := list_head; p != nil; p = p.next {
		if !p.tm201_exp.IsZero() && p.tm201_paused_at.IsZero() && !p.tm201_exp.After(now) {
			p.tm201_exp = time.Time{}
			p.tm201_paused_at = time.Time{}
			tm201_expiry(p)
		}
	}
}

/*------------------------------------------------------------------------------
 *
 * Name:	t1_expiry
 *
 * Purpose:	Handle T1 timer expiration for outstanding I frame or P-bit.
 *
 * Inputs:	S	- Data Link State Machine.
 *
 *------------------------------------------------------------------------------*/

func t1_expiry(S *ax25_dlsm_t) {

	if s_debug_timers > 0 {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("t1_expiry (), [now=%.3f], state=%d, rc=%d\n", time.Since(S.start_time).Seconds(), S.state, S.rc)
	}

	switch S.state {

	case state_0_disconnected:

		// Ignore it.

	case state_1_awaiting_connection, state_5_awaiting_v22_connection:

		// If we already sent the maximum number of SABME, fall back to v2.0 SABM.

		if S.state == state_5_awaiting_v22_connection && S.rc == g_misc_config_p.maxv22 {
			set_version_2_0(S)
			enter_new_state(S, state_1_awaiting_connection)
		}

		if S.rc == S.n2_retry {
			discard_i_queue(S)
			text_color_set(DW_COLOR_INFO)
			dw_printf("Failed to connect to %s after %d tries.\n", S.addrs[PEERCALL], S.n2_retry)
			server_link_terminated(S._chan, S.client, S.addrs[PEERCALL], S.addrs[OWNCALL], true)
			enter_new_state(S, state_0_disconnected)
		} else {
			SET_RC(S, S.rc+1)
			if S.rc > S.peak_rc_value {
				S.peak_rc_value = S.rc // Keep statistics.
			}

			var ftype = frame_type_U_SABM
			if S.state == state_5_awaiting_v22_connection {
				ftype = frame_type_U_SABME
			}
			var p = 1
			var pp = ax25_u_frame(S.addrs, S.num_addr, cr_cmd, ftype, p, 0, nil)
			lm_data_request(S._chan, TQ_PRIO_1_LO, pp)
			select_t1_value(S)
			START_T1(S)
			// Keep same state.
		}

	case state_2_awaiting_release:

		if S.rc == S.n2_retry {
			text_color_set(DW_COLOR_INFO)
			dw_printf("Stream %d: Disconnected from %s.\n", S.stream_id, S.addrs[PEERCALL])
			server_link_terminated(S._chan, S.client, S.addrs[PEERCALL], S.addrs[OWNCALL], false)
			enter_new_state(S, state_0_disconnected)
		} else {
			SET_RC(S, S.rc+1)
			if S.rc > S.peak_rc_value {
				S.peak_rc_value = S.rc
			}

			var p = 1
			var pp = ax25_u_frame(S.addrs, S.num_addr, cr_cmd, frame_type_U_DISC, p, 0, nil)
			lm_data_request(S._chan, TQ_PRIO_1_LO, pp)
			select_t1_value(S)
			START_T1(S)
			// stay in same state
		}

	case state_3_connected:

		SET_RC(S, 1)
		transmit_enquiry(S)
		enter_new_state(S, state_4_timer_recovery)

	case state_4_timer_recovery:

		if S.rc == S.n2_retry {

			if S.va != S.vs {
				if s_debug_protocol_errors > 0 {
					text_color_set(DW_COLOR_ERROR)
					dw_printf("Stream %d: AX.25 Protocol Error I: %d timeouts: unacknowledged sent data.\n", S.stream_id, S.n2_retry)
				}
			} else if S.peer_receiver_busy {
				if s_debug_protocol_errors > 0 {
					text_color_set(DW_COLOR_ERROR)
					dw_printf("Stream %d: AX.25 Protocol Error U: %d timeouts: extended peer busy condition.\n", S.stream_id, S.n2_retry)
				}
			} else {
				if s_debug_protocol_errors > 0 {
					text_color_set(DW_COLOR_ERROR)
					dw_printf("Stream %d: AX.25 Protocol Error T: %d timeouts: no response to enquiry.\n", S.stream_id, S.n2_retry)
				}
			}

			text_color_set(DW_COLOR_INFO)
			dw_printf("Stream %d: Disconnected from %s due to timeouts.\n", S.stream_id, S.addrs[PEERCALL])
			server_link_terminated(S._chan, S.client, S.addrs[PEERCALL], S.addrs[OWNCALL], true)

			discard_i_queue(S)

			var f = 0 // Not a response to P=1.
			var pp = ax25_u_frame(S.addrs, S.num_addr, cr_res, frame_type_U_DM, f, 0, nil)
			lm_data_request(S._chan, TQ_PRIO_1_LO, pp)

			enter_new_state(S, state_0_disconnected)
		} else {
			SET_RC(S, S.rc+1)
			if S.rc > S.peak_rc_value {
				S.peak_rc_value = S.rc
			}

			transmit_enquiry(S)
			// Keep same state.
		}
	}
}

/*------------------------------------------------------------------------------
 *
 * Name:	t3_expiry
 *
 * Purpose:	Handle T3 timer expiration.
 *
 * Inputs:	S	- Data Link State Machine.
 *
 * Description:	T3 periodically polls the other station during periods of
 *		low information transfer to make sure the link is still
 *		functional.
 *
 *------------------------------------------------------------------------------*/

func t3_expiry(S *ax25_dlsm_t) {

	if s_debug_timers > 0 {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("t3_expiry (), [now=%.3f]\n", time.Since(S.start_time).Seconds())
	}

	switch S.state {

	case state_0_disconnected, state_1_awaiting_connection, state_5_awaiting_v22_connection, state_2_awaiting_release, state_4_timer_recovery:

		// Nothing to do.

	case state_3_connected:

		SET_RC(S, 1)
		transmit_enquiry(S)
		enter_new_state(S, state_4_timer_recovery)
	}
}

/*------------------------------------------------------------------------------
 *
 * Name:	tm201_expiry
 *
 * Purpose:	Handle TM201 timer expiration.
 *
 * Description:	This is used when waiting for a response to an XID command.
 *
 *------------------------------------------------------------------------------*/

func tm201_expiry(S *ax25_dlsm_t) {

	if s_debug_timers > 0 {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("tm201_expiry (), [now=%.3f], state=%d, rc=%d\n", time.Since(S.start_time).Seconds(), S.state, S.rc)
	}

	switch S.mdl_state {

	case mdl_state_0_ready:

		// Timer shouldn't be running when in this state.

	case mdl_state_1_negotiating:

		S.mdl_rc++
		if S.mdl_rc > S.n2_retry {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Stream %d: AX.25 Protocol Error MDL-C: Management retry limit exceeded.\n", S.stream_id)
			S.mdl_state = mdl_state_0_ready
		} else {
			// No response.  Ask again.

			var param xid_param_s
			initiate_negotiation(S, &param)

			var xinfo = xid_encode(&param, cr_cmd)

			var p = 1
			var pp = ax25_u_frame(S.addrs, S.num_addr, cr_cmd, frame_type_U_XID, p, 0, xinfo)
			lm_data_request(S._chan, TQ_PRIO_1_LO, pp)

			START_TM201(S)
		}
	}
}

/*------------------------------------------------------------------------------
 *
 * Name:	nr_error_recovery
 *
 * Purpose:	Try to recover after receiving an unexpected N(r) value.
 *
 *------------------------------------------------------------------------------*/

func nr_error_recovery(S *ax25_dlsm_t) {

	if s_debug_protocol_errors > 0 {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Stream %d: AX.25 Protocol Error J: N(r) sequence error.\n", S.stream_id)
	}
	establish_data_link(S)
	S.layer_3_initiated = false
}

/*------------------------------------------------------------------------------
 *
 * Name:	establish_data_link
 *
 * Purpose:	Send SABM or SABME to other station.
 *
 * Description:	Which one depends on the modulo in effect.
 *
 *------------------------------------------------------------------------------*/

func establish_data_link(S *ax25_dlsm_t) {

	clear_exception_conditions(S)

	SET_RC(S, 1)

	var ftype = frame_type_U_SABM
	if S.modulo == modulo_128 {
		ftype = frame_type_U_SABME
	}
	var p = 1
	var pp = ax25_u_frame(S.addrs, S.num_addr, cr_cmd, ftype, p, 0, nil)
	lm_data_request(S._chan, TQ_PRIO_1_LO, pp)
	STOP_T3(S)
	START_T1(S)
}

func clear_exception_conditions(S *ax25_dlsm_t) {

	S.peer_receiver_busy = false
	S.reject_exception = false
	S.own_receiver_busy = false
	S.acknowledge_pending = false

	// If we are establishing a new connection, discard any saved
	// out of sequence incoming I frames.

	for n := 0; n < 128; n++ {
		if S.rxdata_by_ns[n] != nil {
			cdata_delete(S.rxdata_by_ns[n])
			S.rxdata_by_ns[n] = nil
		}
	}

	// We retain the transmit I frame queue so we can continue
	// after establishing a new connection.
}

/*------------------------------------------------------------------------------
 *
 * Name:	transmit_enquiry
 *
 * Purpose:	This is called only when a timer expires.
 *
 *		T1:	We sent I frames and timed out waiting for the ack.
 *			Poke the other end to determine how much it got so far
 *			so we know where to continue.
 *
 *		T3:	No activity for substantial amount of time.
 *			Poke the other end to see if it is still there.
 *
 * Observation:	This is the only place where we send RR command with P=1.
 *
 *------------------------------------------------------------------------------*/

func transmit_enquiry(S *ax25_dlsm_t) {

	var p = 1
	var nr = S.vr

	if s_debug_retry > 0 {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("\n****** TRANSMIT ENQUIRY   RR/RNR cmd P=1 ****** state=%d, rc=%d\n\n", S.state, S.rc)
	}

	var ftype = frame_type_S_RR
	if S.own_receiver_busy {
		ftype = frame_type_S_RNR
	}
	var pp = ax25_s_frame(S.addrs, S.num_addr, cr_cmd, ftype, S.modulo, nr, p, nil)

	lm_data_request(S._chan, TQ_PRIO_1_LO, pp)

	S.acknowledge_pending = false
	START_T1(S)
}

/*------------------------------------------------------------------------------
 *
 * Name:	enquiry_response
 *
 * Inputs:	frame_type	- Type of frame received or frame_not_AX25 for
 *				  LM seize confirm.
 *
 *		f		- F bit for the response.
 *
 * Description:	Normally this replies with RR or RNR response with N(R)
 *		from V(R).  When SREJ is enabled and we are waiting for
 *		fill in of missing frames, ask for those again instead.
 *
 *------------------------------------------------------------------------------*/

func enquiry_response(S *ax25_dlsm_t, frame_type ax25_frame_type_t, f int) {

	var nr = S.vr

	if s_debug_retry > 0 {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("\n****** ENQUIRY RESPONSE  F=%d ******\n\n", f)
	}

	if f == 1 && (frame_type == frame_type_S_RR || frame_type == frame_type_S_RNR || frame_type == frame_type_I) {

		if S.own_receiver_busy {

			// I'm busy.

			var pp = ax25_s_frame(S.addrs, S.num_addr, cr_res, frame_type_S_RNR, S.modulo, nr, f, nil)
			lm_data_request(S._chan, TQ_PRIO_1_LO, pp)

			S.acknowledge_pending = false // because we sent N(R) from V(R).

		} else if S.srej_enable == srej_single || S.srej_enable == srej_multi {

			// SREJ is enabled.  Based on X.25 2.4.6.11.

			if S.modulo != modulo_128 {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("INTERNAL ERROR: enquiry response should not be sending SREJ for modulo 8.\n")
			}

			// First see if we have any out of sequence frames in
			// the receive buffer.

			var last = AX25MODULO(S.vr-1, S.modulo)
			for last != S.vr && S.rxdata_by_ns[last] == nil {
				last = AX25MODULO(last-1, S.modulo)
			}

			if last != S.vr {

				// Ask for missing frames to be sent again.

				var resend []int

				var j = S.vr
				for j != last {
					if S.rxdata_by_ns[j] == nil {
						resend = append(resend, j)
					}
					j = AX25MODULO(j+1, S.modulo)
				}

				var allow_f1 = 1
				send_srej_frames(S, resend, allow_f1)
			} else {

				// Not waiting for fill in of missing frames.

				var pp = ax25_s_frame(S.addrs, S.num_addr, cr_res, frame_type_S_RR, S.modulo, nr, f, nil)
				lm_data_request(S._chan, TQ_PRIO_1_LO, pp)

				S.acknowledge_pending = false
			}
		} else {

			// SREJ not enabled.

			var pp = ax25_s_frame(S.addrs, S.num_addr, cr_res, frame_type_S_RR, S.modulo, nr, f, nil)
			lm_data_request(S._chan, TQ_PRIO_1_LO, pp)

			S.acknowledge_pending = false
		}

	} else {

		// For cases other than (RR, RNR, I) command, P=1.

		var ftype = frame_type_S_RR
		if S.own_receiver_busy {
			ftype = frame_type_S_RNR
		}
		var pp = ax25_s_frame(S.addrs, S.num_addr, cr_res, ftype, S.modulo, nr, f, nil)
		lm_data_request(S._chan, TQ_PRIO_1_LO, pp)

		S.acknowledge_pending = false
	}
}

/*------------------------------------------------------------------------------
 *
 * Name:	invoke_retransmission
 *
 * Inputs:	nr_input	- Resend starting with this.
 *				  Continue with all up to and including the
 *				  current V(S) value.
 *
 * Description:	Resend one or more frames that have already been sent.
 *		Should always send at least one.
 *		This is probably the result of getting REJ asking for a resend.
 *
 * Context:	The caller should clear 'acknowledge_pending' after calling
 *		this because we sent N(R), from V(R), to ack what was
 *		received from the other end.  Stop T3 and Start T1 belong
 *		at the same place.
 *
 *------------------------------------------------------------------------------*/

func invoke_retransmission(S *ax25_dlsm_t, nr_input int) {

	if s_debug_misc > 0 {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("invoke_retransmission(): starting with %d, state=%d, rc=%d, \n", nr_input, S.state, S.rc)
	}

	if S.txdata_by_ns[nr_input] == nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Internal Error, Can't resend starting with N(S) = %d.  It is not available.\n", nr_input)
		return
	}

	var sent_count = 0
	var local_vs = nr_input
	for {
		if S.txdata_by_ns[local_vs] != nil {

			var ns = local_vs
			var nr = S.vr
			var p = 0

			if s_debug_misc > 0 {
				text_color_set(DW_COLOR_INFO)
				dw_printf("invoke_retransmission(): Resending N(S) = %d\n", ns)
			}

			var pp = ax25_i_frame(S.addrs, S.num_addr, cr_cmd, S.modulo, nr, ns, p, S.txdata_by_ns[ns].pid, S.txdata_by_ns[ns].data)

			lm_data_request(S._chan, TQ_PRIO_1_LO, pp)
			// Keep it around in case we need to send again.

			sent_count++
		} else {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Internal Error, state=%d, need to retransmit N(S) = %d for REJ but it is not available.\n", S.state, local_vs)
		}
		local_vs = AX25MODULO(local_vs+1, S.modulo)
		if local_vs == S.vs {
			break
		}
	}

	if sent_count == 0 {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Internal Error, Nothing to retransmit. N(R)=%d\n", nr_input)
	}
}

/*------------------------------------------------------------------------------
 *
 * Name:	check_i_frame_ackd
 *
 * Inputs:	nr	- N(R) from I or S frame, acknowledging receipt
 *			  thru N(R)-1.
 *
 * Outputs:	S.va	- updated from nr.
 *
 *------------------------------------------------------------------------------*/

func check_i_frame_ackd(S *ax25_dlsm_t, nr int) {

	if S.peer_receiver_busy {
		SET_VA(S, nr)

		START_T3(S)
		if !IS_T1_RUNNING(S) {
			START_T1(S)
		}
	} else if nr == S.vs {
		SET_VA(S, nr)
		STOP_T1(S)
		START_T3(S)
		select_t1_value(S)
	} else if nr != S.va {

		if s_debug_misc > 0 {
			text_color_set(DW_COLOR_DEBUG)
			dw_printf("check_i_frame_ackd n(r)=%d, v(a)=%d,  Set v(a) to new value %d\n", nr, S.va, nr)
		}

		SET_VA(S, nr)
		START_T1(S)
	}
}

/*------------------------------------------------------------------------------
 *
 * Name:	check_need_for_response
 *
 * Inputs:	frame_type	- frame_type_S_RR, etc.
 *		cr		- Is it a command or response?
 *		pf		- P/F from the frame.
 *
 * Description:	This is called for RR, RNR, and REJ frames.
 *		If it is a command with P=1, we reply with RR or RNR with F=1.
 *
 *------------------------------------------------------------------------------*/

func check_need_for_response(S *ax25_dlsm_t, frame_type ax25_frame_type_t, cr cmdres_t, pf int) {

	if cr == cr_cmd && pf == 1 {
		var f = 1
		enquiry_response(S, frame_type, f)
	} else if cr == cr_res && pf == 1 {
		if s_debug_protocol_errors > 0 {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Stream %d: AX.25 Protocol Error A: F=1 received but P=1 not outstanding.\n", S.stream_id)
		}
	}
}

/*------------------------------------------------------------------------------
 *
 * Name:	select_t1_value
 *
 * Purpose:	Dynamically adjust the T1 timeout value, commonly a fixed
 *		time known as FRACK.
 *
 * Inputs:	S.rc		Retry counter.
 *
 *		S.srt		Smoothed roundtrip time in seconds.
 *
 *		S.t1_remaining_when_last_stopped
 *				Seconds left on T1 when it is stopped.
 *
 * Outputs:	S.srt		New smoothed roundtrip time.
 *
 *		S.t1v		How long to wait for an acknowledgement
 *				before resending, in seconds.
 *
 * Description:	How long should we wait for an ACK before sending again
 *		or giving up?  Here it is dynamically adjusted by taking
 *		the average time it takes to get a response and doubling it.
 *
 *		T1 is paused whenever the channel is busy so the measured
 *		time could turn out to be a tiny fraction of a second.
 *		A lower limit prevents srt from going below one second so
 *		t1v should never be less than 2 seconds.
 *
 *		The algorithm in the protocol spec increases the timeout
 *		exponentially on retries which gets awful large very
 *		quickly.  Increase it linearly by a fraction of a second
 *		instead so a failed connect attempt gives up after about
 *		a minute rather than an hour.
 *
 *------------------------------------------------------------------------------*/

func select_t1_value(S *ax25_dlsm_t) {

	var old_srt = S.srt

	if S.rc == 0 {

		if S.t1_remaining_when_last_stopped >= 0 { // Negative means invalid, don't use it.

			// IIR low pass filter.

			S.srt = 7./8.*S.srt + 1./8.*(S.t1v-S.t1_remaining_when_last_stopped)
		}

		if S.srt < 1 {

			S.srt = 1

			// Add another 2 seconds for each digipeater in path.

			if S.num_addr > 2 {
				S.srt += float64(2 * (S.num_addr - 2))
			}
		}

		S.t1v = S.srt * 2
	} else {

		if S.t1_had_expired {

			S.t1v = float64(S.rc)*0.25 + S.srt*2
		}
	}

	if s_debug_timers > 0 {
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("Stream %d: select_t1_value, rc = %d, t1 remaining = %.3f, old srt = %.3f, new srt = %.3f, new t1v = %.3f\n",
			S.stream_id, S.rc, S.t1_remaining_when_last_stopped, old_srt, S.srt, S.t1v)
	}

	if S.t1v < 0.99 || S.t1v > 30 {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("INTERNAL ERROR?  Stream %d: select_t1_value, rc = %d, t1 remaining = %.3f, old srt = %.3f, new srt = %.3f, Extreme new t1v = %.3f\n",
			S.stream_id, S.rc, S.t1_remaining_when_last_stopped, old_srt, S.srt, S.t1v)
	}
}

func set_version_2_0(S *ax25_dlsm_t) {

	S.srej_enable = srej_none
	S.modulo = modulo_8
	S.n1_paclen = g_misc_config_p.paclen
	S.k_maxframe = g_misc_config_p.maxframe_basic
	S.n2_retry = g_misc_config_p.retry
}

func set_version_2_2(S *ax25_dlsm_t) {

	S.srej_enable = srej_single // Can be increased to multi with XID exchange.
	S.modulo = modulo_128
	S.n1_paclen = g_misc_config_p.paclen
	S.k_maxframe = g_misc_config_p.maxframe_extended
	S.n2_retry = g_misc_config_p.retry
}

/*------------------------------------------------------------------------------
 *
 * Name:	is_good_nr
 *
 * Purpose:	Evaluate condition "V(a) <= N(r) <= V(s)" which appears in
 *		flow charts for incoming I, RR, RNR, REJ, and SREJ frames.
 *
 * Inputs:	S	- state machine.  Contains V(a) and V(s).
 *
 *		nr	- N(r) found in the incoming frame.
 *
 * Description:	This gets tricky due to the wrap around of sequence numbers.
 *		Adjust all values relative to V(a) before comparing.
 *
 *------------------------------------------------------------------------------*/

func is_good_nr(S *ax25_dlsm_t, nr int) bool {

	var adjusted_va = AX25MODULO(S.va-S.va, S.modulo)
	var adjusted_nr = AX25MODULO(nr-S.va, S.modulo)
	var adjusted_vs = AX25MODULO(S.vs-S.va, S.modulo)

	var result = adjusted_va <= adjusted_nr && adjusted_nr <= adjusted_vs

	if s_debug_misc > 0 {
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("is_good_nr,  V(a) %d <= nr %d <= V(s) %d, returns %t\n", S.va, nr, S.vs, result)
	}

	return (result)
}

/*------------------------------------------------------------------------------
 *
 * Name:	i_frame_pop_off_queue
 *
 * Purpose:	Transmit an I frame if we have one in the queue and
 *		conditions are right.
 *
 * Inputs:	i_frame_queue		- Remove items from here.
 *		peer_receiver_busy	- If other end not busy.
 *		V(s), V(a), k		- and we haven't reached window size.
 *
 * Outputs:	V(s) is incremented for each processed.
 *		acknowledge_pending = false
 *
 *------------------------------------------------------------------------------*/

func i_frame_pop_off_queue(S *ax25_dlsm_t) {

	if S.i_frame_queue == nil {
		return
	}

	switch S.state {

	case state_1_awaiting_connection, state_5_awaiting_v22_connection:

		// Remove the I frame from the queue and discard it if
		// "layer 3 initiated" is set, otherwise leave it there.

		if S.layer_3_initiated {
			var txdata = S.i_frame_queue // Remove from head of list.
			S.i_frame_queue = txdata.next
			cdata_delete(txdata)
		}

	case state_3_connected, state_4_timer_recovery:

		for !S.peer_receiver_busy &&
			S.i_frame_queue != nil &&
			WITHIN_WINDOW_SIZE(S) {

			var txdata = S.i_frame_queue // Remove from head of list.
			S.i_frame_queue = txdata.next
			txdata.next = nil

			var ns = S.vs
			var nr = S.vr
			var p = 0

			var pp = ax25_i_frame(S.addrs, S.num_addr, cr_cmd, S.modulo, nr, ns, p, txdata.pid, txdata.data)

			lm_data_request(S._chan, TQ_PRIO_1_LO, pp)

			// Stash in sent array in case it gets lost and
			// needs to be sent again.

			if S.txdata_by_ns[ns] != nil {
				cdata_delete(S.txdata_by_ns[ns])
			}
			S.txdata_by_ns[ns] = txdata

			SET_VS(S, AX25MODULO(S.vs+1, S.modulo)) // increment sequence of last sent.

			S.acknowledge_pending = false

			// Always restart T1 when an I frame is sent.
			// Otherwise we could time out too soon.

			STOP_T3(S)
			START_T1(S)
		}

	case state_0_disconnected, state_2_awaiting_release:

		// Do nothing.
	}
}

func discard_i_queue(S *ax25_dlsm_t) {

	for S.i_frame_queue != nil {
		var t = S.i_frame_queue
		S.i_frame_queue = S.i_frame_queue.next
		cdata_delete(t)
	}
}

/*------------------------------------------------------------------------------
 *
 * Name:	enter_new_state
 *
 * Purpose:	Switch to new state.
 *
 * Description:	Use a function, rather than setting the variable directly,
 *		so we have one common point for debug output and the
 *		connected indicator.
 *
 *------------------------------------------------------------------------------*/

func enter_new_state(S *ax25_dlsm_t, new_state dlsm_state_t) {

	if s_debug_variables > 0 {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("\n")
		dw_printf(">>> NEW STATE = %d, previously %d <<<\n", new_state, S.state)
		dw_printf("\n")
	}

	Assert(new_state >= 0 && new_state <= 5)

	if (new_state == state_3_connected || new_state == state_4_timer_recovery) &&
		S.state != state_3_connected && S.state != state_4_timer_recovery {

		ptt_set(OCTYPE_CON, S._chan, 1) // Turn on connected indicator if configured.

	} else if (new_state != state_3_connected && new_state != state_4_timer_recovery) &&
		(S.state == state_3_connected || S.state == state_4_timer_recovery) {

		ptt_set(OCTYPE_CON, S._chan, 0) // Turn off connected indicator if configured.
	}

	S.state = new_state
}

/*------------------------------------------------------------------------------
 *
 * Name:	mdl_negotiate_request
 *
 * Purpose:	After receiving UA, in response to SABME, this starts up
 *		the XID exchange.
 *
 * Description:	Send XID command.
 *		Start timer TM201 so we can retry if timeout waiting for
 *		response.  Enter MDL negotiating state.
 *
 *------------------------------------------------------------------------------*/

func mdl_negotiate_request(S *ax25_dlsm_t) {

	// At least one known v2.2 implementation understands SABME but
	// not XID.  The configuration file can contain a list of
	// stations known not to respond to XID so we don't waste time
	// sending it repeatedly until giving up.

	for _, badxid := range g_misc_config_p.noxid_addrs {
		if S.addrs[PEERCALL] == badxid {
			return
		}
	}

	switch S.mdl_state {

	case mdl_state_0_ready:

		var param xid_param_s
		initiate_negotiation(S, &param)

		var xinfo = xid_encode(&param, cr_cmd)

		var p = 1
		var pp = ax25_u_frame(S.addrs, S.num_addr, cr_cmd, frame_type_U_XID, p, 0, xinfo)
		lm_data_request(S._chan, TQ_PRIO_1_LO, pp)

		S.mdl_rc = 0
		START_TM201(S)
		S.mdl_state = mdl_state_1_negotiating

	case mdl_state_1_negotiating:

		// Already negotiating.  Don't start another exchange.
	}
}

/*------------------------------------------------------------------------------
 *
 * Name:	initiate_negotiation
 *
 * Purpose:	Used when preparing the XID *command*.
 *
 * Description:	Prepare set of parameters to request from the other station.
 *
 *------------------------------------------------------------------------------*/

func initiate_negotiation(S *ax25_dlsm_t, param *xid_param_s) {

	param.full_duplex = 0

	switch S.srej_enable {
	case srej_single, srej_multi:
		param.srej = srej_multi // see if other end recognizes it.
	default:
		param.srej = srej_none
	}

	param.modulo = S.modulo
	param.i_field_length_rx = S.n1_paclen
	param.window_size_rx = S.k_maxframe
	param.ack_timer = g_misc_config_p.frack * 1000
	param.retries = S.n2_retry
}

/*------------------------------------------------------------------------------
 *
 * Name:	negotiation_response
 *
 * Purpose:	Used when receiving the XID command and preparing the XID
 *		response.
 *
 * Description:	Take what the other station has asked for and reduce if we
 *		have lesser capabilities.  Ack time and retries are the
 *		opposite, we take the maximum.  Fill in defaults for
 *		anything not specified so both ends agree on a complete
 *		set of parameters.
 *
 *------------------------------------------------------------------------------*/

func negotiation_response(S *ax25_dlsm_t, param *xid_param_s) {

	param.full_duplex = 0

	if param.modulo == modulo_unknown {
		param.modulo = modulo_8 // Not specified.  Set default.
	}

	// We can do REJ or SREJ but won't combine them.

	if param.srej == srej_not_specified {
		if param.modulo == modulo_128 {
			param.srej = srej_single
		} else {
			param.srej = srej_none
		}
	}

	if param.i_field_length_rx == G_UNKNOWN {
		param.i_field_length_rx = 256 // Not specified, take default.
	} else if param.i_field_length_rx > AX25_N1_PACLEN_MAX {
		param.i_field_length_rx = AX25_N1_PACLEN_MAX
	}

	// In theory extended mode can have window size of 127 but
	// it is limited for the reason mentioned in the SREJ logic.

	if param.window_size_rx == G_UNKNOWN {
		if param.modulo == modulo_128 {
			param.window_size_rx = 32 // not specified, set default.
		} else {
			param.window_size_rx = 4
		}
	} else {
		if param.modulo == modulo_128 {
			if param.window_size_rx > AX25_K_MAXFRAME_EXTENDED_MAX {
				param.window_size_rx = AX25_K_MAXFRAME_EXTENDED_MAX
			}
		} else {
			if param.window_size_rx > AX25_K_MAXFRAME_BASIC_MAX {
				param.window_size_rx = AX25_K_MAXFRAME_BASIC_MAX
			}
		}
	}

	if param.ack_timer == G_UNKNOWN {
		param.ack_timer = 3000 // not specified, set default.
	} else if param.ack_timer < g_misc_config_p.frack*1000 {
		param.ack_timer = g_misc_config_p.frack * 1000
	}

	if param.retries == G_UNKNOWN {
		param.retries = 10 // not specified, set default.
	} else if param.retries < S.n2_retry {
		param.retries = S.n2_retry
	}

	// Take values we have agreed upon and put into my running configuration.

	complete_negotiation(S, param)
}

/*------------------------------------------------------------------------------
 *
 * Name:	complete_negotiation
 *
 * Purpose:	Used when preparing or receiving the XID *response*.
 *
 * Description:	Take set of parameters which we have agreed upon and apply
 *		to the running configuration.
 *
 *------------------------------------------------------------------------------*/

func complete_negotiation(S *ax25_dlsm_t, param *xid_param_s) {

	if param.srej != srej_not_specified {
		S.srej_enable = param.srej
	}

	if param.modulo != modulo_unknown {
		// Disaster if we aren't agreeing on this.
		S.modulo = param.modulo
	}

	if param.i_field_length_rx != G_UNKNOWN {
		S.n1_paclen = param.i_field_length_rx
	}

	if param.window_size_rx != G_UNKNOWN {
		S.k_maxframe = param.window_size_rx
	}

	if param.ack_timer != G_UNKNOWN {
		S.t1v = float64(param.ack_timer) * 0.001
	}

	if param.retries != G_UNKNOWN {
		S.n2_retry = param.retries
	}
}

/*------------------------------------------------------------------------------
 *
 *	Timers.
 *
 *	Start.
 *	Stop.
 *	Pause (when channel busy) & resume.
 *	Is it running?
 *	Did it expire before being stopped?
 *	When will next one expire?
 *
 *	All timekeeping goes thru dl_now so a test can substitute a
 *	fake clock and check the scheduling deterministically.
 *
 *------------------------------------------------------------------------------*/

func START_T1(S *ax25_dlsm_t) {

	var now = dl_now()

	if s_debug_timers > 0 {
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("Start T1 for t1v = %.3f sec, rc = %d, [now=%.3f]\n", S.t1v, S.rc, now.Sub(S.start_time).Seconds())
	}

	S.t1_exp = now.Add(time.Duration(S.t1v * float64(time.Second)))
	if S.radio_channel_busy {
		S.t1_paused_at = now
	} else {
		S.t1_paused_at = time.Time{}
	}
	S.t1_had_expired = false
}

func STOP_T1(S *ax25_dlsm_t) {

	var now = dl_now()

	RESUME_T1(S) // adjust expire time if paused.

	if S.t1_exp.IsZero() {
		// Was already stopped.
		if s_debug_timers > 0 {
			text_color_set(DW_COLOR_DEBUG)
			dw_printf("Stop T1. Wasn't running, [now=%.3f]\n", now.Sub(S.start_time).Seconds())
		}
	} else {
		S.t1_remaining_when_last_stopped = S.t1_exp.Sub(now).Seconds()
		if S.t1_remaining_when_last_stopped < 0 {
			S.t1_remaining_when_last_stopped = 0
		}
		if s_debug_timers > 0 {
			text_color_set(DW_COLOR_DEBUG)
			dw_printf("Stop T1, %.3f remaining, [now=%.3f]\n", S.t1_remaining_when_last_stopped, now.Sub(S.start_time).Seconds())
		}
	}

	S.t1_exp = time.Time{}  // now stopped.
	S.t1_had_expired = false // remember that it did not expire.
}

func IS_T1_RUNNING(S *ax25_dlsm_t) bool {

	var result = !S.t1_exp.IsZero()

	if s_debug_timers > 0 {
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("is_t1_running?  returns %t\n", result)
	}

	return (result)
}

func PAUSE_T1(S *ax25_dlsm_t) {

	if S.t1_exp.IsZero() {
		// Stopped so there is nothing to do.
	} else if S.t1_paused_at.IsZero() {
		// Running and not paused.

		var now = dl_now()

		S.t1_paused_at = now

		if s_debug_timers > 0 {
			text_color_set(DW_COLOR_DEBUG)
			dw_printf("Paused T1 with %.3f still remaining, [now=%.3f]\n", S.t1_exp.Sub(now).Seconds(), now.Sub(S.start_time).Seconds())
		}
	} else {
		if s_debug_timers > 0 {
			text_color_set(DW_COLOR_DEBUG)
			dw_printf("T1 error: Didn't expect pause when already paused.\n")
		}
	}
}

func RESUME_T1(S *ax25_dlsm_t) {

	if S.t1_exp.IsZero() {
		// Stopped so there is nothing to do.
	} else if S.t1_paused_at.IsZero() {
		// Running but not paused.
	} else {
		var now = dl_now()
		var paused_for = now.Sub(S.t1_paused_at)

		S.t1_exp = S.t1_exp.Add(paused_for)
		S.t1_paused_at = time.Time{}

		if s_debug_timers > 0 {
			text_color_set(DW_COLOR_DEBUG)
			dw_printf("Resumed T1 after pausing for %.3f sec, %.3f still remaining, [now=%.3f]\n", paused_for.Seconds(), S.t1_exp.Sub(now).Seconds(), now.Sub(S.start_time).Seconds())
		}
	}
}

// T3 is a lot simpler.
// Here we are talking about minutes of inactivity with the peer
// rather than expecting a response within seconds where timing is
// more critical.  We don't need to capture remaining time when
// stopped and there is no need to pause it.

func START_T3(S *ax25_dlsm_t) {

	var now = dl_now()

	if s_debug_timers > 0 {
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("Start T3 for %.3f sec, [now=%.3f]\n", T3_DEFAULT, now.Sub(S.start_time).Seconds())
	}

	S.t3_exp = now.Add(time.Duration(T3_DEFAULT * float64(time.Second)))
}

func STOP_T3(S *ax25_dlsm_t) {

	if s_debug_timers > 0 {
		var now = dl_now()

		text_color_set(DW_COLOR_DEBUG)
		if S.t3_exp.IsZero() {
			dw_printf("Stop T3. Wasn't running.\n")
		} else {
			dw_printf("Stop T3, %.3f remaining, [now=%.3f]\n", S.t3_exp.Sub(now).Seconds(), now.Sub(S.start_time).Seconds())
		}
	}
	S.t3_exp = time.Time{}
}

// TM201 is similar to T1.
// It needs to be paused when the channel is busy.
// Simpler because we don't need to keep track of time remaining
// when stopped.

func START_TM201(S *ax25_dlsm_t) {

	var now = dl_now()

	if s_debug_timers > 0 {
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("Start TM201 for t1v = %.3f sec, rc = %d, [now=%.3f]\n", S.t1v, S.rc, now.Sub(S.start_time).Seconds())
	}

	S.tm201_exp = now.Add(time.Duration(S.t1v * float64(time.Second)))
	if S.radio_channel_busy {
		S.tm201_paused_at = now
	} else {
		S.tm201_paused_at = time.Time{}
	}
}

func STOP_TM201(S *ax25_dlsm_t) {

	if s_debug_timers > 0 {
		var now = dl_now()

		text_color_set(DW_COLOR_DEBUG)
		dw_printf("Stop TM201.  [now=%.3f]\n", now.Sub(S.start_time).Seconds())
	}

	S.tm201_exp = time.Time{}
}

func PAUSE_TM201(S *ax25_dlsm_t) {

	if S.tm201_exp.IsZero() {
		// Stopped so there is nothing to do.
	} else if S.tm201_paused_at.IsZero() {
		// Running and not paused.

		var now = dl_now()

		S.tm201_paused_at = now

		if s_debug_timers > 0 {
			text_color_set(DW_COLOR_DEBUG)
			dw_printf("Paused TM201 with %.3f still remaining, [now=%.3f]\n", S.tm201_exp.Sub(now).Seconds(), now.Sub(S.start_time).Seconds())
		}
	} else {
		if s_debug_timers > 0 {
			text_color_set(DW_COLOR_DEBUG)
			dw_printf("TM201 error: Didn't expect pause when already paused.\n")
		}
	}
}

func RESUME_TM201(S *ax25_dlsm_t) {

	if S.tm201_exp.IsZero() {
		// Stopped so there is nothing to do.
	} else if S.tm201_paused_at.IsZero() {
		// Running but not paused.
	} else {
		var now = dl_now()
		var paused_for = now.Sub(S.tm201_paused_at)

		S.tm201_exp = S.tm201_exp.Add(paused_for)
		S.tm201_paused_at = time.Time{}

		if s_debug_timers > 0 {
			text_color_set(DW_COLOR_DEBUG)
			dw_printf("Resumed TM201 after pausing for %.3f sec, %.3f still remaining, [now=%.3f]\n", paused_for.Seconds(), S.tm201_exp.Sub(now).Seconds(), now.Sub(S.start_time).Seconds())
		}
	}
}

/*------------------------------------------------------------------------------
 *
 * Name:	ax25_link_get_next_timer_expiry
 *
 * Purpose:	Find the earliest expiration time of any running timer so
 *		the receive thread knows how long it can wait for an event.
 *
 * Returns:	Zero time if no timer is running.
 *
 *------------------------------------------------------------------------------*/

func ax25_link_get_next_timer_expiry() time.Time {

	var tnext time.Time

	for p := list_head; p != nil; p = p.next {

		// Consider if running and not paused.

		if !p.t1_exp.IsZero() && p.t1_paused_at.IsZero() {
			if tnext.IsZero() || p.t1_exp.Before(tnext) {
				tnext = p.t1_exp
			}
		}

		if !p.t3_exp.IsZero() {
			if tnext.IsZero() || p.t3_exp.Before(tnext) {
				tnext = p.t3_exp
			}
		}

		if !p.tm201_exp.IsZero() && p.tm201_paused_at.IsZero() {
			if tnext.IsZero() || p.tm201_exp.Before(tnext) {
				tnext = p.tm201_exp
			}
		}
	}

	if s_debug_timers > 1 {
		text_color_set(DW_COLOR_DEBUG)
		if tnext.IsZero() {
			dw_printf("ax25_link_get_next_timer_expiry returns none.\n")
		} else {
			dw_printf("ax25_link_get_next_timer_expiry returns %.3f sec from now.\n", tnext.Sub(dl_now()).Seconds())
		}
	}

	return (tnext)
}
