package direwolf

// Exercises the data link state machine directly, in the style of
// recv_process from recv.go:  build dlq_item_t events and hand them
// to the dl_* / lm_* entry points, then look at the state machine
// and the transmit queue.

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// Helper to set up a fresh test environment
func setupTestEnv(t *testing.T) {
	t.Helper()

	var audioConfig = new(audio_s)
	audioConfig.chan_medium[0] = MEDIUM_RADIO
	audioConfig.chan_medium[1] = MEDIUM_RADIO
	ptt_init(audioConfig)
	tq_init(audioConfig)

	var miscConfig = new(misc_config_s)
	// Set proper defaults for connected mode
	miscConfig.paclen = AX25_N1_PACLEN_DEFAULT
	miscConfig.retry = AX25_N2_RETRY_DEFAULT
	miscConfig.frack = AX25_T1V_FRACK_DEFAULT
	miscConfig.maxframe_basic = AX25_K_MAXFRAME_BASIC_DEFAULT
	miscConfig.maxframe_extended = AX25_K_MAXFRAME_EXTENDED_DEFAULT
	miscConfig.maxv22 = 0 // Default: don't try v2.2 (for most tests)

	ax25_link_init(miscConfig, 1)

	list_head = nil
	reg_callsign_list = nil // Clear registered callsigns
}

// Helper to set up environment with v2.2 support enabled
func setupTestEnvV22(t *testing.T) {
	t.Helper()

	var audioConfig = new(audio_s)
	audioConfig.chan_medium[0] = MEDIUM_RADIO
	audioConfig.chan_medium[1] = MEDIUM_RADIO
	ptt_init(audioConfig)
	tq_init(audioConfig)

	var miscConfig = new(misc_config_s)
	// Set proper defaults for connected mode
	miscConfig.paclen = AX25_N1_PACLEN_DEFAULT
	miscConfig.retry = AX25_N2_RETRY_DEFAULT
	miscConfig.frack = AX25_T1V_FRACK_DEFAULT
	miscConfig.maxframe_basic = AX25_K_MAXFRAME_BASIC_DEFAULT
	miscConfig.maxframe_extended = AX25_K_MAXFRAME_EXTENDED_DEFAULT
	miscConfig.maxv22 = 3 // Enable v2.2

	ax25_link_init(miscConfig, 1)

	list_head = nil
	reg_callsign_list = nil // Clear registered callsigns
}

// Helper to initiate a connect request
func initiateConnect(t *testing.T, myCall, theirCall string, channel int) {
	t.Helper()

	var E = new(dlq_item_t)
	E._type = DLQ_CONNECT_REQUEST
	E._chan = channel
	E.addrs[OWNCALL] = myCall
	E.addrs[PEERCALL] = theirCall
	E.num_addr = 2

	dl_connect_request(E)
}

// Helper to simulate receiving a frame
func receiveFrame(t *testing.T, pp *packet_t, channel int) {
	t.Helper()

	var E = new(dlq_item_t)
	E._chan = channel
	E.pp = pp

	lm_data_indication(E)
}

// Helper to establish a connection (SABM/UA exchange)
func establishConnection(t *testing.T, myCall, theirCall string, channel int) *ax25_dlsm_t { //nolint:unparam
	t.Helper()

	initiateConnect(t, myCall, theirCall, channel)

	// Receive UA response
	var addrs [AX25_MAX_ADDRS]string
	addrs[OWNCALL] = theirCall
	addrs[PEERCALL] = myCall
	var pp = ax25_u_frame(addrs, 2, cr_res, frame_type_U_UA, 1, 0, nil)
	assert.NotNil(t, pp)

	receiveFrame(t, pp, channel)

	assert.NotNil(t, list_head)
	assert.Equal(t, state_3_connected, list_head.state)

	return list_head
}

// Helper to pull everything off the transmit queue so we can look at
// what the state machine actually sent.
func drainTransmitQueue(t *testing.T, channel int) []*packet_t {
	t.Helper()

	var sent []*packet_t
	for {
		var pp = tq_remove(channel, TQ_PRIO_0_HI)
		if pp == nil {
			pp = tq_remove(channel, TQ_PRIO_1_LO)
		}
		if pp == nil {
			break
		}
		sent = append(sent, pp)
	}
	return sent
}

// ============================================================================
// Link Establishment and Termination Tests
// ============================================================================

// SABM/UA Exchange (Modulo 8)
func TestAX25LinkConnectedBasic(t *testing.T) {
	var MY_CALL = "M6KGG"
	var THEIR_CALL = "2E0KGG"
	const CHANNEL = 1

	setupTestEnv(t)

	var E *dlq_item_t
	var pp *packet_t
	var addrs [AX25_MAX_ADDRS]string

	// Connect request
	E = new(dlq_item_t)
	E._type = DLQ_CONNECT_REQUEST
	E._chan = CHANNEL
	E.addrs[OWNCALL] = MY_CALL
	E.addrs[PEERCALL] = THEIR_CALL
	E.num_addr = 2

	dl_connect_request(E)

	// A SABM command should have gone out the radio channel.
	var sent = drainTransmitQueue(t, CHANNEL)
	if assert.Len(t, sent, 1) {
		cr, _, pf, _, _, ftype := ax25_frame_type(sent[0])
		assert.Equal(t, frame_type_U_SABM, ftype)
		assert.Equal(t, cr_cmd, cr)
		assert.Equal(t, 1, pf, "SABM should be sent with P=1")
	}

	// Now acknowledge
	addrs[OWNCALL] = THEIR_CALL
	addrs[PEERCALL] = MY_CALL
	pp = ax25_u_frame(addrs, 2, cr_res, frame_type_U_UA, 1, 0, nil)
	assert.NotNil(t, pp)

	E = new(dlq_item_t)
	E._chan = CHANNEL
	E.pp = pp

	lm_data_indication(E)

	// And now we should be connected!
	assert.NotNil(t, list_head)
	assert.Equal(t, state_3_connected, list_head.state, "%+v", list_head)

	// Verify state variables initialized
	assert.Equal(t, 0, list_head.vs, "V(S) should be 0")
	assert.Equal(t, 0, list_head.vr, "V(R) should be 0")
	assert.Equal(t, 0, list_head.va, "V(A) should be 0")
	assert.Equal(t, ax25_modulo_t(8), list_head.modulo, "Should be modulo 8")
}

// SABME/UA Exchange (Modulo 128)
func TestAX25LinkSABMEConnection(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnvV22(t) // Use v2.2 enabled environment

	// Initiate connection - will try SABME first for v2.2
	initiateConnect(t, MY_CALL, THEIR_CALL, CHANNEL)

	// Should be in awaiting v2.2 connection state
	assert.NotNil(t, list_head)
	assert.Equal(t, state_5_awaiting_v22_connection, list_head.state)

	var sent = drainTransmitQueue(t, CHANNEL)
	if assert.Len(t, sent, 1) {
		_, _, _, _, _, ftype := ax25_frame_type(sent[0])
		assert.Equal(t, frame_type_U_SABME, ftype)
	}

	// Receive UA response (accepting v2.2)
	var addrs [AX25_MAX_ADDRS]string
	addrs[OWNCALL] = THEIR_CALL
	addrs[PEERCALL] = MY_CALL
	var pp = ax25_u_frame(addrs, 2, cr_res, frame_type_U_UA, 1, 0, nil)
	assert.NotNil(t, pp)

	receiveFrame(t, pp, CHANNEL)

	// Should now be connected with modulo 128
	assert.Equal(t, state_3_connected, list_head.state)
	assert.Equal(t, ax25_modulo_t(128), list_head.modulo, "Should be modulo 128 for v2.2")
}

// Connection Rejected with DM
func TestAX25LinkConnectionRejectedWithDM(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	initiateConnect(t, MY_CALL, THEIR_CALL, CHANNEL)

	// Receive DM response (connection rejected)
	var addrs [AX25_MAX_ADDRS]string
	addrs[OWNCALL] = THEIR_CALL
	addrs[PEERCALL] = MY_CALL
	var pp = ax25_u_frame(addrs, 2, cr_res, frame_type_U_DM, 1, 0, nil)
	assert.NotNil(t, pp)

	receiveFrame(t, pp, CHANNEL)

	// Should return to disconnected state
	assert.NotNil(t, list_head)
	assert.Equal(t, state_0_disconnected, list_head.state, "Should be disconnected after DM")
}

// Normal DISC/UA Exchange
func TestAX25LinkDISCDisconnection(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	// First establish a connection
	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)
	assert.Equal(t, state_3_connected, S.state)

	// Request disconnection
	var E = new(dlq_item_t)
	E._type = DLQ_DISCONNECT_REQUEST
	E._chan = CHANNEL
	E.addrs[OWNCALL] = MY_CALL
	E.addrs[PEERCALL] = THEIR_CALL
	E.num_addr = 2

	dl_disconnect_request(E)

	// Should be in awaiting release state
	assert.Equal(t, state_2_awaiting_release, S.state)

	// Receive UA response
	var addrs [AX25_MAX_ADDRS]string
	addrs[OWNCALL] = THEIR_CALL
	addrs[PEERCALL] = MY_CALL
	var pp = ax25_u_frame(addrs, 2, cr_res, frame_type_U_UA, 1, 0, nil)
	assert.NotNil(t, pp)

	receiveFrame(t, pp, CHANNEL)

	// Should now be disconnected
	assert.Equal(t, state_0_disconnected, S.state)
}

// DISC in Disconnected State
func TestAX25LinkDISCInDisconnectedState(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	// Register our callsign to receive frames
	var regE = new(dlq_item_t)
	regE._type = DLQ_REGISTER_CALLSIGN
	regE._chan = CHANNEL
	regE.addrs[0] = MY_CALL // Register uses addrs[0]
	regE.client = 0
	dl_register_callsign(regE)

	// Receive DISC in disconnected state
	var addrs [AX25_MAX_ADDRS]string
	addrs[AX25_DESTINATION] = MY_CALL
	addrs[AX25_SOURCE] = THEIR_CALL
	var pp = ax25_u_frame(addrs, 2, cr_cmd, frame_type_U_DISC, 1, 0, nil)
	assert.NotNil(t, pp)

	receiveFrame(t, pp, CHANNEL)

	// Should respond with DM and remain disconnected (no state machine created)
	assert.Nil(t, list_head, "No state machine should be created for DISC")
}

// ============================================================================
// Information Transfer Tests
// ============================================================================

// I-Frame Reception
func TestAX25LinkIFrameExchange(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	// Receive I-frame with N(S)=0
	var addrs [AX25_MAX_ADDRS]string
	addrs[AX25_DESTINATION] = MY_CALL
	addrs[AX25_SOURCE] = THEIR_CALL
	var info = []byte("Hello")
	var pp = ax25_i_frame(addrs, 2, cr_cmd, 8, 0, 0, 0, AX25_PID_NO_LAYER_3, info)
	assert.NotNil(t, pp)

	receiveFrame(t, pp, CHANNEL)

	// V(R) should increment to 1
	assert.Equal(t, 1, S.vr, "V(R) should be 1 after receiving I-frame")
	assert.True(t, S.acknowledge_pending, "Acknowledge should be pending")
}

// RR Acknowledgement
func TestAX25LinkRRResponse(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)
	drainTransmitQueue(t, CHANNEL)

	// Receive RR command with N(R)=0 and P=1 (poll)
	var addrs [AX25_MAX_ADDRS]string
	addrs[AX25_DESTINATION] = MY_CALL
	addrs[AX25_SOURCE] = THEIR_CALL
	var pp = ax25_s_frame(addrs, 2, cr_cmd, frame_type_S_RR, 8, 0, 1, nil)
	assert.NotNil(t, pp)

	receiveFrame(t, pp, CHANNEL)

	// Should still be connected
	assert.Equal(t, state_3_connected, S.state)

	// Poll must be answered with a response with F=1.
	var sent = drainTransmitQueue(t, CHANNEL)
	if assert.Len(t, sent, 1) {
		cr, _, pf, nr, _, ftype := ax25_frame_type(sent[0])
		assert.Equal(t, frame_type_S_RR, ftype)
		assert.Equal(t, cr_res, cr)
		assert.Equal(t, 1, pf, "Response to poll should have F=1")
		assert.Equal(t, 0, nr)
	}
}

// RNR Flow Control
func TestAX25LinkRNRFlowControl(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	// Receive RNR (peer busy)
	var addrs [AX25_MAX_ADDRS]string
	addrs[AX25_DESTINATION] = MY_CALL
	addrs[AX25_SOURCE] = THEIR_CALL
	var pp = ax25_s_frame(addrs, 2, cr_cmd, frame_type_S_RNR, 8, 0, 0, nil)
	assert.NotNil(t, pp)

	receiveFrame(t, pp, CHANNEL)

	// Peer receiver busy flag should be set
	assert.True(t, S.peer_receiver_busy, "Peer receiver busy should be set")

	// Now receive RR to clear busy condition
	pp = ax25_s_frame(addrs, 2, cr_cmd, frame_type_S_RR, 8, 0, 0, nil)
	receiveFrame(t, pp, CHANNEL)

	// Peer receiver busy should be cleared
	assert.False(t, S.peer_receiver_busy, "Peer receiver busy should be cleared")
}

// Multiple sequential I-frame reception with V(R) tracking
func TestAX25LinkMultipleIFrames(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	var addrs [AX25_MAX_ADDRS]string
	addrs[AX25_DESTINATION] = MY_CALL
	addrs[AX25_SOURCE] = THEIR_CALL

	// Receive I-frames 0, 1, 2 in sequence
	for ns := 0; ns < 3; ns++ {
		var info = []byte("Frame " + string(rune('0'+ns)))
		var pp = ax25_i_frame(addrs, 2, cr_cmd, 8, 0, ns, 0, AX25_PID_NO_LAYER_3, info)
		assert.NotNil(t, pp)
		receiveFrame(t, pp, CHANNEL)

		// V(R) should increment
		assert.Equal(t, ns+1, S.vr, "V(R) should be %d after frame %d", ns+1, ns)
	}

	assert.True(t, S.acknowledge_pending, "Acknowledge should be pending")
}

// Out-of-sequence I-frame sets reject_exception flag
func TestAX25LinkOutOfSequenceIFrame(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)
	drainTransmitQueue(t, CHANNEL)

	var addrs [AX25_MAX_ADDRS]string
	addrs[AX25_DESTINATION] = MY_CALL
	addrs[AX25_SOURCE] = THEIR_CALL

	// Receive I-frame 0
	var pp = ax25_i_frame(addrs, 2, cr_cmd, 8, 0, 0, 0, AX25_PID_NO_LAYER_3, []byte("Frame 0"))
	receiveFrame(t, pp, CHANNEL)
	assert.Equal(t, 1, S.vr, "V(R) should be 1")

	// Receive I-frame 2 (out of sequence, expecting 1)
	pp = ax25_i_frame(addrs, 2, cr_cmd, 8, 0, 2, 0, AX25_PID_NO_LAYER_3, []byte("Frame 2"))
	receiveFrame(t, pp, CHANNEL)

	// V(R) should NOT increment (frame rejected)
	assert.Equal(t, 1, S.vr, "V(R) should still be 1")
	// Reject exception should be set
	assert.True(t, S.reject_exception, "Reject exception should be set")

	// A REJ asking for 1 should have gone out.
	var sawREJ = false
	for _, sp := range drainTransmitQueue(t, CHANNEL) {
		_, _, _, nr, _, ftype := ax25_frame_type(sp)
		if ftype == frame_type_S_REJ {
			sawREJ = true
			assert.Equal(t, 1, nr, "REJ should request V(R)=1")
		}
	}
	assert.True(t, sawREJ, "Should have sent REJ for the gap")
}

// I-frame with piggybacked acknowledgement updates V(A)
func TestAX25LinkIFrameWithAck(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	// Simulate that we've sent some frames by setting V(S)
	S.vs = 3

	var addrs [AX25_MAX_ADDRS]string
	addrs[AX25_DESTINATION] = MY_CALL
	addrs[AX25_SOURCE] = THEIR_CALL

	// Receive I-frame with N(R)=2 (acknowledging our frames 0 and 1)
	var pp = ax25_i_frame(addrs, 2, cr_cmd, 8, 2, 0, 0, AX25_PID_NO_LAYER_3, []byte("Data"))
	receiveFrame(t, pp, CHANNEL)

	// V(A) should be updated to 2
	assert.Equal(t, 2, S.va, "V(A) should be 2 after receiving N(R)=2")
}

// ============================================================================
// Error Recovery Tests
// ============================================================================

// REJ Reception handling
func TestAX25LinkREJErrorRecovery(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	// Receive REJ command with P=1 (poll)
	// This tests REJ handling when no frames are outstanding
	var addrs [AX25_MAX_ADDRS]string
	addrs[AX25_DESTINATION] = MY_CALL
	addrs[AX25_SOURCE] = THEIR_CALL
	var pp = ax25_s_frame(addrs, 2, cr_cmd, frame_type_S_REJ, 8, 0, 1, nil) // P=1
	assert.NotNil(t, pp)

	receiveFrame(t, pp, CHANNEL)

	// Should still be connected (REJ with valid N(R)=0 when V(A)=0 is valid)
	assert.Equal(t, state_3_connected, S.state)
}

// REJ causes retransmission of everything from N(R), in order.
func TestAX25LinkREJRetransmitOrder(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	// Queue up three outgoing I frames and let them be "transmitted".
	for i := 0; i < 3; i++ {
		var E = new(dlq_item_t)
		E._type = DLQ_XMIT_DATA_REQUEST
		E._chan = CHANNEL
		E.addrs[OWNCALL] = MY_CALL
		E.addrs[PEERCALL] = THEIR_CALL
		E.num_addr = 2
		E.txdata = cdata_new(AX25_PID_NO_LAYER_3, []byte{byte('a' + i)})
		dl_data_request(E)
	}

	// Pump them out of the I frame queue as the seize confirm would.
	var cE = new(dlq_item_t)
	cE._type = DLQ_SEIZE_CONFIRM
	cE._chan = CHANNEL
	lm_seize_confirm(cE)

	assert.Equal(t, 3, S.vs, "Three I frames should be outstanding")
	drainTransmitQueue(t, CHANNEL)

	// Peer rejects from frame 1.
	var addrs [AX25_MAX_ADDRS]string
	addrs[AX25_DESTINATION] = MY_CALL
	addrs[AX25_SOURCE] = THEIR_CALL
	var pp = ax25_s_frame(addrs, 2, cr_res, frame_type_S_REJ, 8, 1, 0, nil)
	receiveFrame(t, pp, CHANNEL)

	assert.Equal(t, 1, S.va, "N(R)=1 acknowledges frame 0")

	// Frames 1 and 2 should be retransmitted, in order.
	var resent []int
	for _, sp := range drainTransmitQueue(t, CHANNEL) {
		_, _, _, _, ns, ftype := ax25_frame_type(sp)
		if ftype == frame_type_I {
			resent = append(resent, ns)
		}
	}
	assert.Equal(t, []int{1, 2}, resent, "Should resend N(S) 1 and 2 in order")
}

// ============================================================================
// State Machine Transition Tests
// ============================================================================

// SABM Reception in Disconnected (incoming connection)
func TestAX25LinkIncomingSABM(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	// Register our callsign for incoming connections
	var regE = new(dlq_item_t)
	regE._type = DLQ_REGISTER_CALLSIGN
	regE._chan = CHANNEL
	regE.addrs[0] = MY_CALL // Register uses addrs[0]
	regE.client = 0
	dl_register_callsign(regE)

	// Receive SABM from peer
	var addrs [AX25_MAX_ADDRS]string
	addrs[AX25_DESTINATION] = MY_CALL
	addrs[AX25_SOURCE] = THEIR_CALL
	var pp = ax25_u_frame(addrs, 2, cr_cmd, frame_type_U_SABM, 1, 0, nil)
	assert.NotNil(t, pp)

	receiveFrame(t, pp, CHANNEL)

	// Should now be connected
	if assert.NotNil(t, list_head, "Should have created state machine for incoming connection") {
		assert.Equal(t, state_3_connected, list_head.state)

		// Verify state variables initialized
		assert.Equal(t, 0, list_head.vs, "V(S) should be 0")
		assert.Equal(t, 0, list_head.vr, "V(R) should be 0")
		assert.Equal(t, 0, list_head.va, "V(A) should be 0")

		// We should have answered with UA F=1.
		var sent = drainTransmitQueue(t, CHANNEL)
		if assert.Len(t, sent, 1) {
			cr, _, pf, _, _, ftype := ax25_frame_type(sent[0])
			assert.Equal(t, frame_type_U_UA, ftype)
			assert.Equal(t, cr_res, cr)
			assert.Equal(t, 1, pf)
		}
	}
}

// Outstanding frames lookup when the other station initiated the connection
func TestAX25LinkOutstandingFramesEitherOrientation(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	// Register our callsign and let the peer connect to us.
	var regE = new(dlq_item_t)
	regE._type = DLQ_REGISTER_CALLSIGN
	regE._chan = CHANNEL
	regE.addrs[0] = MY_CALL // Register uses addrs[0]
	regE.client = 0
	dl_register_callsign(regE)

	var addrs [AX25_MAX_ADDRS]string
	addrs[AX25_DESTINATION] = MY_CALL
	addrs[AX25_SOURCE] = THEIR_CALL
	var pp = ax25_u_frame(addrs, 2, cr_cmd, frame_type_U_SABM, 1, 0, nil)
	assert.NotNil(t, pp)

	receiveFrame(t, pp, CHANNEL)

	var S = list_head
	if !assert.NotNil(t, S, "Should have created state machine for incoming connection") {
		return
	}
	assert.Equal(t, state_3_connected, S.state)
	drainTransmitQueue(t, CHANNEL)

	// Query with addresses the way the link stores them.
	var query [AX25_MAX_ADDRS]string
	query[OWNCALL] = MY_CALL
	query[PEERCALL] = THEIR_CALL
	assert.Same(t, S, get_link_handle_either(query, 2, CHANNEL, 0))

	// The client doesn't necessarily know who called whom.  The reversed
	// pair must find the same link.
	query[OWNCALL] = THEIR_CALL
	query[PEERCALL] = MY_CALL
	assert.Same(t, S, get_link_handle_either(query, 2, CHANNEL, 0),
		"Lookup should match the address pair in either orientation")

	// The query event itself takes the same path.
	var ofE = new(dlq_item_t)
	ofE._type = DLQ_OUTSTANDING_FRAMES_REQUEST
	ofE._chan = CHANNEL
	ofE.client = 0
	ofE.num_addr = 2
	ofE.addrs[OWNCALL] = THEIR_CALL
	ofE.addrs[PEERCALL] = MY_CALL
	dl_outstanding_frames_request(ofE)
}

// State variable management
func TestAX25LinkStateVariables(t *testing.T) {
	// Test AX25MODULO function (doesn't need a connection)
	assert.Equal(t, 0, AX25MODULO(8, 8), "8 mod 8 should be 0")
	assert.Equal(t, 7, AX25MODULO(-1, 8), "-1 mod 8 should be 7")
	assert.Equal(t, 0, AX25MODULO(128, 128), "128 mod 128 should be 0")
	assert.Equal(t, 127, AX25MODULO(-1, 128), "-1 mod 128 should be 127")
	assert.Equal(t, 5, AX25MODULO(13, 8), "13 mod 8 should be 5")

	// Now test with a connection
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	// Initial state variables
	assert.Equal(t, 0, S.vs, "Initial V(S) should be 0")
	assert.Equal(t, 0, S.vr, "Initial V(R) should be 0")
	assert.Equal(t, 0, S.va, "Initial V(A) should be 0")

	// Test SET_VS
	SET_VS(S, 3)
	assert.Equal(t, 3, S.vs, "V(S) should be 3")

	// Test SET_VR
	SET_VR(S, 2)
	assert.Equal(t, 2, S.vr, "V(R) should be 2")

	// Test SET_VA - need VS to be >= VA value first
	S.vs = 5
	SET_VA(S, 1)
	assert.Equal(t, 1, S.va, "V(A) should be 1")

	// Test WITHIN_WINDOW_SIZE
	S.va = 0
	S.vs = 0
	S.k_maxframe = 4
	assert.True(t, WITHIN_WINDOW_SIZE(S), "Should be within window when vs=0, va=0, k=4")

	S.vs = 4
	assert.False(t, WITHIN_WINDOW_SIZE(S), "Should NOT be within window when vs=4, va=0, k=4")
}

// DISC reception while connected causes transition to disconnected
func TestAX25LinkDISCWhileConnected(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)
	assert.Equal(t, state_3_connected, S.state)

	// Receive DISC from peer
	var addrs [AX25_MAX_ADDRS]string
	addrs[AX25_DESTINATION] = MY_CALL
	addrs[AX25_SOURCE] = THEIR_CALL
	var pp = ax25_u_frame(addrs, 2, cr_cmd, frame_type_U_DISC, 1, 0, nil)
	receiveFrame(t, pp, CHANNEL)

	// Should transition to disconnected
	assert.Equal(t, state_0_disconnected, S.state)
}

// SABM while connected causes link reset
func TestAX25LinkSABMWhileConnected(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	// Set some non-zero state variables
	S.vs = 3
	S.vr = 2
	S.va = 1

	// Receive SABM from peer (link reset)
	var addrs [AX25_MAX_ADDRS]string
	addrs[AX25_DESTINATION] = MY_CALL
	addrs[AX25_SOURCE] = THEIR_CALL
	var pp = ax25_u_frame(addrs, 2, cr_cmd, frame_type_U_SABM, 1, 0, nil)
	receiveFrame(t, pp, CHANNEL)

	// Should remain connected but state variables reset
	assert.Equal(t, state_3_connected, S.state)
	assert.Equal(t, 0, S.vs, "V(S) should be reset to 0")
	assert.Equal(t, 0, S.vr, "V(R) should be reset to 0")
	assert.Equal(t, 0, S.va, "V(A) should be reset to 0")
}

// DM response also terminates awaiting release state
func TestAX25LinkDMAfterDISC(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	// Request disconnection
	var E = new(dlq_item_t)
	E._type = DLQ_DISCONNECT_REQUEST
	E._chan = CHANNEL
	E.addrs[OWNCALL] = MY_CALL
	E.addrs[PEERCALL] = THEIR_CALL
	E.num_addr = 2
	dl_disconnect_request(E)

	assert.Equal(t, state_2_awaiting_release, S.state)

	// Receive DM instead of UA
	var addrs [AX25_MAX_ADDRS]string
	addrs[OWNCALL] = THEIR_CALL
	addrs[PEERCALL] = MY_CALL
	var pp = ax25_u_frame(addrs, 2, cr_res, frame_type_U_DM, 1, 0, nil)
	receiveFrame(t, pp, CHANNEL)

	// Should transition to disconnected
	assert.Equal(t, state_0_disconnected, S.state)
}

// SABM collision - receive SABM while in awaiting connection state
func TestAX25LinkSABMCollision(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	// Initiate connection (sends SABM, enters awaiting connection)
	initiateConnect(t, MY_CALL, THEIR_CALL, CHANNEL)

	assert.NotNil(t, list_head)
	assert.Equal(t, state_1_awaiting_connection, list_head.state)

	// Receive SABM from peer (collision)
	// Per the protocol, we send UA but stay in state 1 waiting for peer's UA
	var addrs [AX25_MAX_ADDRS]string
	addrs[AX25_DESTINATION] = MY_CALL
	addrs[AX25_SOURCE] = THEIR_CALL
	var pp = ax25_u_frame(addrs, 2, cr_cmd, frame_type_U_SABM, 1, 0, nil)
	receiveFrame(t, pp, CHANNEL)

	// Still in state 1 - we sent UA but still waiting for their UA
	assert.Equal(t, state_1_awaiting_connection, list_head.state)

	// Now receive the UA from peer (completing the collision resolution)
	addrs[OWNCALL] = THEIR_CALL
	addrs[PEERCALL] = MY_CALL
	pp = ax25_u_frame(addrs, 2, cr_res, frame_type_U_UA, 1, 0, nil)
	receiveFrame(t, pp, CHANNEL)

	// Now should be connected
	assert.Equal(t, state_3_connected, list_head.state)
}

// Timer recovery state entry on receiving poll
func TestAX25LinkTimerRecoveryState(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	// Manually put into timer recovery state
	enter_new_state(S, state_4_timer_recovery)
	assert.Equal(t, state_4_timer_recovery, S.state)

	// Receive RR with F=1 (response to our poll)
	var addrs [AX25_MAX_ADDRS]string
	addrs[AX25_DESTINATION] = MY_CALL
	addrs[AX25_SOURCE] = THEIR_CALL
	var pp = ax25_s_frame(addrs, 2, cr_res, frame_type_S_RR, 8, 0, 1, nil) // F=1
	receiveFrame(t, pp, CHANNEL)

	// Should return to connected state
	assert.Equal(t, state_3_connected, S.state)
}

// SABM/DISC collision
func TestAX25LinkSABMDISCCollision(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	// Initiate connection
	initiateConnect(t, MY_CALL, THEIR_CALL, CHANNEL)

	assert.NotNil(t, list_head)
	assert.Equal(t, state_1_awaiting_connection, list_head.state)

	// Receive DISC while awaiting connection
	var addrs [AX25_MAX_ADDRS]string
	addrs[AX25_DESTINATION] = MY_CALL
	addrs[AX25_SOURCE] = THEIR_CALL
	var pp = ax25_u_frame(addrs, 2, cr_cmd, frame_type_U_DISC, 1, 0, nil)
	receiveFrame(t, pp, CHANNEL)

	// Protocol sends DM but stays in awaiting connection state
	assert.Equal(t, state_1_awaiting_connection, list_head.state)
}

// Unexpected UA in connected state triggers link reset
func TestAX25LinkUnexpectedUA(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	// Set some state
	S.vs = 3
	S.vr = 2

	// Receive unsolicited UA
	var addrs [AX25_MAX_ADDRS]string
	addrs[AX25_DESTINATION] = MY_CALL
	addrs[AX25_SOURCE] = THEIR_CALL
	var pp = ax25_u_frame(addrs, 2, cr_res, frame_type_U_UA, 0, 0, nil)
	receiveFrame(t, pp, CHANNEL)

	// Should trigger link reset - state goes to awaiting connection
	assert.True(t, S.state == state_1_awaiting_connection || S.state == state_5_awaiting_v22_connection,
		"Unexpected UA should trigger link reset")
}

// ============================================================================
// SREJ Tests (Selective Reject)
// ============================================================================

// SREJ frame handling
func TestAX25LinkSREJFrame(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnvV22(t) // SREJ requires v2.2

	// Establish v2.2 connection
	initiateConnect(t, MY_CALL, THEIR_CALL, CHANNEL)

	var addrs [AX25_MAX_ADDRS]string
	addrs[OWNCALL] = THEIR_CALL
	addrs[PEERCALL] = MY_CALL
	var pp = ax25_u_frame(addrs, 2, cr_res, frame_type_U_UA, 1, 0, nil)
	receiveFrame(t, pp, CHANNEL)

	var S = list_head
	assert.Equal(t, state_3_connected, S.state)
	assert.Equal(t, ax25_modulo_t(128), S.modulo)

	// Simulate having sent frames by setting V(S)
	S.vs = 5

	// Receive SREJ requesting retransmission of frame 2
	addrs[AX25_DESTINATION] = MY_CALL
	addrs[AX25_SOURCE] = THEIR_CALL
	pp = ax25_s_frame(addrs, 2, cr_res, frame_type_S_SREJ, 128, 2, 1, nil)
	receiveFrame(t, pp, CHANNEL)

	// Should still be connected
	assert.Equal(t, state_3_connected, S.state)
}

// An out of sequence I frame should produce SREJ only for the frames
// actually missing, and the received frame is kept for later.
func TestAX25LinkSREJRequestsOnlyMissing(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnvV22(t)

	initiateConnect(t, MY_CALL, THEIR_CALL, CHANNEL)

	var addrs [AX25_MAX_ADDRS]string
	addrs[OWNCALL] = THEIR_CALL
	addrs[PEERCALL] = MY_CALL
	var pp = ax25_u_frame(addrs, 2, cr_res, frame_type_U_UA, 1, 0, nil)
	receiveFrame(t, pp, CHANNEL)

	var S = list_head
	assert.Equal(t, state_3_connected, S.state)
	assert.Equal(t, srej_single, S.srej_enable)
	drainTransmitQueue(t, CHANNEL)

	addrs[AX25_DESTINATION] = MY_CALL
	addrs[AX25_SOURCE] = THEIR_CALL

	// Frame 0 arrives normally.
	pp = ax25_i_frame(addrs, 2, cr_cmd, 128, 0, 0, 0, AX25_PID_NO_LAYER_3, []byte("zero"))
	receiveFrame(t, pp, CHANNEL)
	assert.Equal(t, 1, S.vr)
	drainTransmitQueue(t, CHANNEL)

	// Frame 3 arrives.  1 and 2 are missing.
	pp = ax25_i_frame(addrs, 2, cr_cmd, 128, 0, 3, 0, AX25_PID_NO_LAYER_3, []byte("three"))
	receiveFrame(t, pp, CHANNEL)

	assert.Equal(t, 1, S.vr, "V(R) must not advance past the gap")
	assert.NotNil(t, S.rxdata_by_ns[3], "Frame 3 should be saved for later")

	var srejNR []int
	for _, sp := range drainTransmitQueue(t, CHANNEL) {
		_, _, _, nr, _, ftype := ax25_frame_type(sp)
		if ftype == frame_type_S_SREJ {
			srejNR = append(srejNR, nr)
		}
	}
	assert.Equal(t, []int{1, 2}, srejNR, "Should ask for exactly the missing frames")

	// Frame 7 arrives.  Only 4, 5, 6 are newly missing; no duplicate
	// requests for 1 and 2.
	pp = ax25_i_frame(addrs, 2, cr_cmd, 128, 0, 7, 0, AX25_PID_NO_LAYER_3, []byte("seven"))
	receiveFrame(t, pp, CHANNEL)

	srejNR = nil
	for _, sp := range drainTransmitQueue(t, CHANNEL) {
		_, _, _, nr, _, ftype := ax25_frame_type(sp)
		if ftype == frame_type_S_SREJ {
			srejNR = append(srejNR, nr)
		}
	}
	assert.Equal(t, []int{4, 5, 6}, srejNR, "Should ask only for the new gap")

	// Fill in all the missing frames.  V(R) should advance through the
	// saved ones without them being retransmitted.
	for _, ns := range []int{1, 2, 4, 5, 6} {
		pp = ax25_i_frame(addrs, 2, cr_cmd, 128, 0, ns, 0, AX25_PID_NO_LAYER_3, []byte("fill"))
		receiveFrame(t, pp, CHANNEL)
	}

	assert.Equal(t, 8, S.vr, "V(R) should advance past all saved frames")
	assert.Nil(t, S.rxdata_by_ns[3], "Saved frame should be consumed")
	assert.Nil(t, S.rxdata_by_ns[7], "Saved frame should be consumed")
}

// ============================================================================
// Window Size Tests
// ============================================================================

// Window size check function
func TestAX25LinkWindowSize(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	// Default k=4 for modulo 8
	S.k_maxframe = 4
	S.va = 0
	S.vs = 0

	// Should be within window initially
	assert.True(t, WITHIN_WINDOW_SIZE(S))

	// Simulate sending 4 frames
	S.vs = 4
	assert.False(t, WITHIN_WINDOW_SIZE(S), "At window limit")

	// Simulate receiving ack for 2 frames
	S.va = 2
	assert.True(t, WITHIN_WINDOW_SIZE(S), "Window should slide")

	// Test wrap-around
	S.va = 6
	S.vs = 6
	assert.True(t, WITHIN_WINDOW_SIZE(S))

	S.vs = 2 // Wrapped around (6+4=10, 10 mod 8 = 2)
	assert.False(t, WITHIN_WINDOW_SIZE(S), "At window limit with wrap")
}

// Modulo 128 window size
func TestAX25LinkWindowSizeMod128(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnvV22(t)

	// Establish v2.2 connection
	initiateConnect(t, MY_CALL, THEIR_CALL, CHANNEL)

	var addrs [AX25_MAX_ADDRS]string
	addrs[OWNCALL] = THEIR_CALL
	addrs[PEERCALL] = MY_CALL
	var pp = ax25_u_frame(addrs, 2, cr_res, frame_type_U_UA, 1, 0, nil)
	receiveFrame(t, pp, CHANNEL)

	var S = list_head
	assert.Equal(t, ax25_modulo_t(128), S.modulo)

	// Default k=32 for modulo 128
	S.k_maxframe = 32
	S.va = 0
	S.vs = 0

	assert.True(t, WITHIN_WINDOW_SIZE(S))

	S.vs = 32
	assert.False(t, WITHIN_WINDOW_SIZE(S), "At window limit mod 128")

	S.va = 16
	assert.True(t, WITHIN_WINDOW_SIZE(S), "Window slides")
}

// N(S) in window check
func TestAX25LinkNSInWindow(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	S.vr = 0
	// The window check uses GENEROUS_K (63) and formula: V(R) < N(S) < V(R) + GENEROUS_K

	// N(S)=1 should be in window (0 < 1 < 63)
	assert.True(t, is_ns_in_window(S, 1))

	// N(S)=62 should be in window (0 < 62 < 63)
	assert.True(t, is_ns_in_window(S, 62))

	// N(S)=0 is NOT in window (0 < 0 is false)
	assert.False(t, is_ns_in_window(S, 0))
}

// ============================================================================
// FRMR Handling Tests
// ============================================================================

// FRMR reception causes fallback to v2.0
func TestAX25LinkFRMRResponse(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnvV22(t)

	// Initiate v2.2 connection
	initiateConnect(t, MY_CALL, THEIR_CALL, CHANNEL)

	assert.NotNil(t, list_head)
	assert.Equal(t, state_5_awaiting_v22_connection, list_head.state)

	// Receive FRMR (peer doesn't understand SABME)
	var addrs [AX25_MAX_ADDRS]string
	addrs[OWNCALL] = THEIR_CALL
	addrs[PEERCALL] = MY_CALL
	// FRMR has info field with error details
	var frmrInfo = []byte{0x00, 0x00, 0x00} // Minimal FRMR info
	var pp = ax25_u_frame(addrs, 2, cr_res, frame_type_U_FRMR, 1, 0, frmrInfo)
	receiveFrame(t, pp, CHANNEL)

	// Should fall back to v2.0 and retry with SABM
	assert.Equal(t, state_1_awaiting_connection, list_head.state)
	assert.Equal(t, ax25_modulo_t(8), list_head.modulo, "Should fall back to modulo 8")
}

// DM in response to SABME also causes fallback to v2.0
func TestAX25LinkDMV22Fallback(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnvV22(t)

	initiateConnect(t, MY_CALL, THEIR_CALL, CHANNEL)
	assert.Equal(t, state_5_awaiting_v22_connection, list_head.state)
	drainTransmitQueue(t, CHANNEL)

	var addrs [AX25_MAX_ADDRS]string
	addrs[OWNCALL] = THEIR_CALL
	addrs[PEERCALL] = MY_CALL
	var pp = ax25_u_frame(addrs, 2, cr_res, frame_type_U_DM, 1, 0, nil)
	receiveFrame(t, pp, CHANNEL)

	// Old TNC.  Try again with SABM.
	assert.Equal(t, state_1_awaiting_connection, list_head.state)
	assert.Equal(t, ax25_modulo_t(8), list_head.modulo)

	var sent = drainTransmitQueue(t, CHANNEL)
	if assert.Len(t, sent, 1) {
		_, _, _, _, _, ftype := ax25_frame_type(sent[0])
		assert.Equal(t, frame_type_U_SABM, ftype, "Retry should use SABM, not SABME")
	}
}

// ============================================================================
// P/F Bit Tests
// ============================================================================

// Poll bit in I-frame requires response with F bit
func TestAX25LinkPollResponse(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)
	drainTransmitQueue(t, CHANNEL)

	var addrs [AX25_MAX_ADDRS]string
	addrs[AX25_DESTINATION] = MY_CALL
	addrs[AX25_SOURCE] = THEIR_CALL

	// Receive I-frame with P=1 (poll)
	var pp = ax25_i_frame(addrs, 2, cr_cmd, 8, 0, 0, 1, AX25_PID_NO_LAYER_3, []byte("Poll"))
	receiveFrame(t, pp, CHANNEL)

	// V(R) should increment
	assert.Equal(t, 1, S.vr)
	// Should remain connected
	assert.Equal(t, state_3_connected, S.state)

	// The poll forces an immediate RR response with F=1 and N(R)=1.
	var sent = drainTransmitQueue(t, CHANNEL)
	if assert.Len(t, sent, 1) {
		cr, _, pf, nr, _, ftype := ax25_frame_type(sent[0])
		assert.Equal(t, frame_type_S_RR, ftype)
		assert.Equal(t, cr_res, cr)
		assert.Equal(t, 1, pf)
		assert.Equal(t, 1, nr)
	}
}

// RR command with P=1 should get response
func TestAX25LinkRRPoll(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	var addrs [AX25_MAX_ADDRS]string
	addrs[AX25_DESTINATION] = MY_CALL
	addrs[AX25_SOURCE] = THEIR_CALL

	// Receive RR with P=1
	var pp = ax25_s_frame(addrs, 2, cr_cmd, frame_type_S_RR, 8, 0, 1, nil)
	receiveFrame(t, pp, CHANNEL)

	// Should remain connected
	assert.Equal(t, state_3_connected, S.state)
}

// ============================================================================
// N(R) Validation Tests
// ============================================================================

// Test N(R) validation function
func TestAX25LinkIsGoodNR(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	// V(A)=0, V(S)=0: only N(R)=0 is valid
	S.va = 0
	S.vs = 0
	assert.True(t, is_good_nr(S, 0), "N(R)=0 valid when V(A)=0, V(S)=0")
	assert.False(t, is_good_nr(S, 1), "N(R)=1 invalid when V(S)=0")

	// V(A)=0, V(S)=3: N(R) 0-3 valid
	S.vs = 3
	assert.True(t, is_good_nr(S, 0), "N(R)=0 valid")
	assert.True(t, is_good_nr(S, 1), "N(R)=1 valid")
	assert.True(t, is_good_nr(S, 2), "N(R)=2 valid")
	assert.True(t, is_good_nr(S, 3), "N(R)=3 valid")
	assert.False(t, is_good_nr(S, 4), "N(R)=4 invalid")

	// V(A)=2, V(S)=5: N(R) 2-5 valid
	S.va = 2
	S.vs = 5
	assert.False(t, is_good_nr(S, 1), "N(R)=1 invalid (< V(A))")
	assert.True(t, is_good_nr(S, 2), "N(R)=2 valid")
	assert.True(t, is_good_nr(S, 5), "N(R)=5 valid")
	assert.False(t, is_good_nr(S, 6), "N(R)=6 invalid")

	// Test wrap-around: V(A)=6, V(S)=2 (wrapped)
	S.va = 6
	S.vs = 2
	assert.True(t, is_good_nr(S, 6), "N(R)=6 valid")
	assert.True(t, is_good_nr(S, 7), "N(R)=7 valid")
	assert.True(t, is_good_nr(S, 0), "N(R)=0 valid (wrapped)")
	assert.True(t, is_good_nr(S, 2), "N(R)=2 valid")
	assert.False(t, is_good_nr(S, 3), "N(R)=3 invalid")
}

// ============================================================================
// Timer Tests
// ============================================================================

// T1 timer start/stop
func TestAX25LinkT1Timer(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	// Initially T1 should not be running
	assert.False(t, IS_T1_RUNNING(S), "T1 should not be running initially")

	// Start T1
	START_T1(S)
	assert.True(t, IS_T1_RUNNING(S), "T1 should be running after START_T1")

	// Stop T1
	STOP_T1(S)
	assert.False(t, IS_T1_RUNNING(S), "T1 should not be running after STOP_T1")
}

// T3 timer start/stop
func TestAX25LinkT3Timer(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	// Start T3
	START_T3(S)
	assert.False(t, S.t3_exp.IsZero(), "T3 should be running after START_T3")

	// Stop T3
	STOP_T3(S)
	assert.True(t, S.t3_exp.IsZero(), "T3 should not be running after STOP_T3")
}

// T1 pause/resume for channel busy
func TestAX25LinkT1PauseResume(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	START_T1(S)
	assert.True(t, IS_T1_RUNNING(S))

	// Pause T1
	PAUSE_T1(S)
	assert.False(t, S.t1_paused_at.IsZero(), "T1 should be paused")

	// Resume T1
	RESUME_T1(S)
	assert.True(t, S.t1_paused_at.IsZero(), "T1 should not be paused after resume")
	assert.True(t, IS_T1_RUNNING(S), "T1 should still be running")
}

// Timer expiry functions can be called directly
func TestAX25LinkT1Expiry(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	// Set retry counter
	SET_RC(S, 0)

	// Call t1_expiry - should increment RC and potentially change state
	t1_expiry(S)

	// RC should have incremented
	assert.Equal(t, 1, S.rc, "RC should increment on T1 expiry")

	// First expiry while connected enters timer recovery and polls.
	assert.Equal(t, state_4_timer_recovery, S.state)
}

// T3 expiry triggers poll
func TestAX25LinkT3Expiry(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)
	drainTransmitQueue(t, CHANNEL)

	// Call t3_expiry - should send a poll
	t3_expiry(S)

	assert.Equal(t, state_4_timer_recovery, S.state)

	var sent = drainTransmitQueue(t, CHANNEL)
	if assert.Len(t, sent, 1) {
		cr, _, pf, _, _, ftype := ax25_frame_type(sent[0])
		assert.Equal(t, frame_type_S_RR, ftype, "Keepalive should poll with RR")
		assert.Equal(t, cr_cmd, cr)
		assert.Equal(t, 1, pf)
	}
}

// Repeated T1 expiry eventually gives up and disconnects
func TestAX25LinkT1ExpiryMaxRetry(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	for i := 0; i <= S.n2_retry; i++ {
		t1_expiry(S)
		if S.state == state_0_disconnected {
			break
		}
	}

	assert.Equal(t, state_0_disconnected, S.state, "Should give up after N2 retries")
}

// Earliest pending timer can be queried for the scheduler
func TestAX25LinkNextTimerExpiry(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	STOP_T1(S)
	STOP_T3(S)
	STOP_TM201(S)

	assert.True(t, ax25_link_get_next_timer_expiry().IsZero(), "No timers, no deadline")

	START_T1(S)
	var next = ax25_link_get_next_timer_expiry()
	assert.False(t, next.IsZero())
	assert.False(t, next.Before(time.Now()), "Deadline should be in the future")
	assert.Equal(t, S.t1_exp, next)
}

// Timer scheduling under a substituted clock
func TestAX25LinkTimerClockInjection(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	STOP_T1(S)
	STOP_T3(S)
	STOP_TM201(S)

	var fake = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	dl_now = func() time.Time { return fake }
	defer func() { dl_now = time.Now }()

	START_T1(S)
	var expect = fake.Add(time.Duration(S.t1v * float64(time.Second)))
	assert.Equal(t, expect, S.t1_exp, "T1 deadline should be t1v past the clock")
	assert.Equal(t, expect, ax25_link_get_next_timer_expiry())

	// Channel busy for 5 seconds partway through.  The deadline
	// slides by exactly the paused interval.
	fake = fake.Add(time.Second)
	PAUSE_T1(S)
	fake = fake.Add(5 * time.Second)
	RESUME_T1(S)
	assert.Equal(t, expect.Add(5*time.Second), S.t1_exp)

	STOP_T1(S)
	assert.True(t, ax25_link_get_next_timer_expiry().IsZero())
}

// T1 starts paused when the radio channel is busy
func TestAX25LinkChannelBusyTimers(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	START_T1(S)
	assert.True(t, S.t1_paused_at.IsZero())

	// Someone else starts transmitting.
	var E = new(dlq_item_t)
	E._type = DLQ_CHANNEL_BUSY
	E._chan = CHANNEL
	E.activity = OCTYPE_DCD
	E.status = 1
	lm_channel_busy(E)

	assert.True(t, S.radio_channel_busy)
	assert.False(t, S.t1_paused_at.IsZero(), "T1 should pause while channel busy")

	// Channel clears.
	E = new(dlq_item_t)
	E._type = DLQ_CHANNEL_BUSY
	E._chan = CHANNEL
	E.activity = OCTYPE_DCD
	E.status = 0
	lm_channel_busy(E)

	assert.False(t, S.radio_channel_busy)
	assert.True(t, S.t1_paused_at.IsZero(), "T1 should resume when channel clears")
	assert.True(t, IS_T1_RUNNING(S))
}

// ============================================================================
// XID Parameter Negotiation Tests
// ============================================================================

// XID frame parsing
func TestAX25LinkXIDParse(t *testing.T) {
	// Test empty XID info
	result, _, status := xid_parse(nil)
	assert.Equal(t, 1, status, "Empty XID should parse successfully")
	assert.Equal(t, G_UNKNOWN, result.full_duplex)

	// Test XID with just format indicator (minimal valid)
	info := []byte{FI_Format_Indicator, GI_Group_Identifier, 0x00, 0x00}
	_, _, status = xid_parse(info)
	assert.Equal(t, 1, status, "Minimal XID should parse successfully")
}

// XID frame encoding
func TestAX25LinkXIDEncode(t *testing.T) {
	var param xid_param_s
	param.full_duplex = 0 // half duplex
	param.srej = srej_single
	param.modulo = 128
	param.i_field_length_rx = 256
	param.window_size_rx = 32
	param.ack_timer = 3000
	param.retries = 10

	// Encode the parameters
	info := xid_encode(&param, cr_cmd)
	assert.NotNil(t, info, "XID encode should produce info field")
	assert.Greater(t, len(info), 4, "XID info should have content")

	// Verify format indicator
	assert.Equal(t, byte(FI_Format_Indicator), info[0])
	assert.Equal(t, byte(GI_Group_Identifier), info[1])
}

// XID roundtrip (encode then parse)
func TestAX25LinkXIDRoundtrip(t *testing.T) {
	var original xid_param_s
	original.full_duplex = 1
	original.srej = srej_multi
	original.modulo = 128
	original.i_field_length_rx = 512
	original.window_size_rx = 64
	original.ack_timer = 5000
	original.retries = 15

	// Encode
	info := xid_encode(&original, cr_cmd)
	assert.NotNil(t, info)

	// Parse back
	parsed, _, status := xid_parse(info)
	assert.Equal(t, 1, status)

	// Verify values match
	assert.Equal(t, original.full_duplex, parsed.full_duplex)
	assert.Equal(t, original.modulo, parsed.modulo)
	assert.Equal(t, original.i_field_length_rx, parsed.i_field_length_rx)
	assert.Equal(t, original.window_size_rx, parsed.window_size_rx)
	assert.Equal(t, original.ack_timer, parsed.ack_timer)
	assert.Equal(t, original.retries, parsed.retries)
}

// XID frame reception in connected state
func TestAX25LinkXIDFrameConnected(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnvV22(t)

	// Establish v2.2 connection
	initiateConnect(t, MY_CALL, THEIR_CALL, CHANNEL)

	var addrs [AX25_MAX_ADDRS]string
	addrs[OWNCALL] = THEIR_CALL
	addrs[PEERCALL] = MY_CALL
	var pp = ax25_u_frame(addrs, 2, cr_res, frame_type_U_UA, 1, 0, nil)
	receiveFrame(t, pp, CHANNEL)

	var S = list_head
	assert.Equal(t, state_3_connected, S.state)

	// Connecting in v2.2 starts our own XID exchange.
	var sawXID = false
	for _, sp := range drainTransmitQueue(t, CHANNEL) {
		cr, _, pf, _, _, ftype := ax25_frame_type(sp)
		if ftype == frame_type_U_XID {
			sawXID = true
			assert.Equal(t, cr_cmd, cr)
			assert.Equal(t, 1, pf)
		}
	}
	assert.True(t, sawXID, "Should probe the peer with XID after connecting")

	// Peer answers and negotiation completes.
	var param xid_param_s
	param.full_duplex = 0
	param.srej = srej_single
	param.modulo = 128
	param.i_field_length_rx = 256
	param.window_size_rx = 32
	param.ack_timer = 3000
	param.retries = 10

	addrs[AX25_DESTINATION] = MY_CALL
	addrs[AX25_SOURCE] = THEIR_CALL
	pp = ax25_u_frame(addrs, 2, cr_res, frame_type_U_XID, 1, 0, xid_encode(&param, cr_res))
	receiveFrame(t, pp, CHANNEL)

	assert.Equal(t, mdl_state_0_ready, S.mdl_state, "Negotiation should be complete")

	// Now the peer probes us.  We should answer with an XID response F=1.
	pp = ax25_u_frame(addrs, 2, cr_cmd, frame_type_U_XID, 1, 0, xid_encode(&param, cr_cmd))
	receiveFrame(t, pp, CHANNEL)

	// Should still be connected
	assert.Equal(t, state_3_connected, S.state)

	sawXID = false
	for _, sp := range drainTransmitQueue(t, CHANNEL) {
		cr, _, pf, _, _, ftype := ax25_frame_type(sp)
		if ftype == frame_type_U_XID {
			sawXID = true
			assert.Equal(t, cr_res, cr)
			assert.Equal(t, 1, pf)
		}
	}
	assert.True(t, sawXID, "XID command should be answered with XID response")
}

// ============================================================================
// C/R Bit Encoding Tests
// ============================================================================

// Command frame has correct C/R bits
func TestAX25LinkCommandFrameEncoding(t *testing.T) {
	var addrs [AX25_MAX_ADDRS]string
	addrs[AX25_DESTINATION] = "TEST2"
	addrs[AX25_SOURCE] = "TEST1"

	// Create SABM command
	var pp = ax25_u_frame(addrs, 2, cr_cmd, frame_type_U_SABM, 1, 0, nil)
	assert.NotNil(t, pp)

	// Verify it's recognized as a command
	cr, _, _, _, _, _ := ax25_frame_type(pp) //nolint:dogsled
	assert.Equal(t, cr_cmd, cr, "SABM should be a command")
}

// Response frame has correct C/R bits
func TestAX25LinkResponseFrameEncoding(t *testing.T) {
	var addrs [AX25_MAX_ADDRS]string
	addrs[AX25_DESTINATION] = "TEST1"
	addrs[AX25_SOURCE] = "TEST2"

	// Create UA response
	var pp = ax25_u_frame(addrs, 2, cr_res, frame_type_U_UA, 1, 0, nil)
	assert.NotNil(t, pp)

	// Verify it's recognized as a response
	cr, _, _, _, _, _ := ax25_frame_type(pp) //nolint:dogsled
	assert.Equal(t, cr_res, cr, "UA should be a response")
}

// I-frame as command
func TestAX25LinkIFrameAsCommand(t *testing.T) {
	var addrs [AX25_MAX_ADDRS]string
	addrs[AX25_DESTINATION] = "TEST2"
	addrs[AX25_SOURCE] = "TEST1"

	var pp = ax25_i_frame(addrs, 2, cr_cmd, 8, 0, 0, 0, AX25_PID_NO_LAYER_3, []byte("test"))
	assert.NotNil(t, pp)

	cr, _, _, _, _, ftype := ax25_frame_type(pp) //nolint:dogsled
	assert.Equal(t, cr_cmd, cr, "I-frame should be a command")
	assert.Equal(t, frame_type_I, ftype)
}

// S-frame as command and response
func TestAX25LinkSFrameCommandResponse(t *testing.T) {
	var addrs [AX25_MAX_ADDRS]string
	addrs[AX25_DESTINATION] = "TEST2"
	addrs[AX25_SOURCE] = "TEST1"

	// RR as command
	var pp = ax25_s_frame(addrs, 2, cr_cmd, frame_type_S_RR, 8, 0, 1, nil)
	assert.NotNil(t, pp)

	cr, _, _, _, _, ftype := ax25_frame_type(pp) //nolint:dogsled
	assert.Equal(t, cr_cmd, cr, "RR should be command")
	assert.Equal(t, frame_type_S_RR, ftype)

	// RR as response
	pp = ax25_s_frame(addrs, 2, cr_res, frame_type_S_RR, 8, 0, 1, nil)
	assert.NotNil(t, pp)

	cr, _, _, _, _, ftype = ax25_frame_type(pp) //nolint:dogsled
	assert.Equal(t, cr_res, cr, "RR should be response")
	assert.Equal(t, frame_type_S_RR, ftype)
}

// ============================================================================
// Sequence Number Tests
// ============================================================================

// Modulo 8 wrap-around
func TestAX25LinkModulo8WrapAround(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	// Test sequence wrap from 7 to 0
	S.vs = 7
	SET_VS(S, AX25MODULO(S.vs+1, S.modulo))
	assert.Equal(t, 0, S.vs, "V(S) should wrap from 7 to 0")

	S.vr = 7
	SET_VR(S, AX25MODULO(S.vr+1, S.modulo))
	assert.Equal(t, 0, S.vr, "V(R) should wrap from 7 to 0")
}

// Modulo 128 wrap-around
func TestAX25LinkModulo128WrapAround(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnvV22(t)

	initiateConnect(t, MY_CALL, THEIR_CALL, CHANNEL)

	var addrs [AX25_MAX_ADDRS]string
	addrs[OWNCALL] = THEIR_CALL
	addrs[PEERCALL] = MY_CALL
	var pp = ax25_u_frame(addrs, 2, cr_res, frame_type_U_UA, 1, 0, nil)
	receiveFrame(t, pp, CHANNEL)

	var S = list_head
	assert.Equal(t, ax25_modulo_t(128), S.modulo)

	// Test sequence wrap from 127 to 0
	S.vs = 127
	SET_VS(S, AX25MODULO(S.vs+1, S.modulo))
	assert.Equal(t, 0, S.vs, "V(S) should wrap from 127 to 0")
}

// AX25MODULO always lands in range and agrees with arithmetic
func TestAX25ModuloProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var n = rapid.IntRange(-1000, 1000).Draw(t, "n")

		for _, m := range []ax25_modulo_t{modulo_8, modulo_128} {
			var r = AX25MODULO(n, m)
			assert.GreaterOrEqual(t, r, 0)
			assert.Less(t, r, int(m))
			assert.Equal(t, 0, AX25MODULO(n-r, m), "Difference should be a multiple of the modulus")
		}
	})
}

// ============================================================================
// Segmenter/Reassembler Tests
// ============================================================================

// Reassembler initial state
func TestAX25LinkReassemblerInitialState(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	// Reassembler buffer should be nil initially
	assert.Nil(t, S.ra_buff, "Reassembler buffer should be nil initially")
}

// First segment with flag set
func TestAX25LinkFirstSegmentFlag(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	// Create first segment:
	// Format: [0x80 | count] [original_pid] [data...]
	// 0x82 = 0x80 (first segment flag) | 0x02 (2 following segments)
	var segmentData = []byte{0x82, 0xF0, 'H', 'e', 'l', 'l', 'o'}

	dl_data_indication(S, AX25_PID_SEGMENTATION_FRAGMENT, segmentData)

	// Reassembler should now have a buffer allocated
	assert.NotNil(t, S.ra_buff, "Reassembler buffer should be allocated after first segment")
	assert.Equal(t, 2, S.ra_following, "Should have 2 segments remaining")
}

// Continuation segments claiming more than the first segment promised
func TestAX25LinkReassemblerOverflowDiscarded(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	// First segment: 2 following segments, so the expected total is small.
	// Format: [0x80 | count] [original_pid] [data...]
	var first = []byte{0x82, 0xF0, 'H', 'i'}
	dl_data_indication(S, AX25_PID_SEGMENTATION_FRAGMENT, first)
	assert.NotNil(t, S.ra_buff, "Reassembler buffer should be allocated after first segment")

	// A continuation far larger than the expected total must not be
	// accepted.  The whole partial buffer is discarded.
	var oversized = make([]byte, 301)
	oversized[0] = 0x01 // one more after this one
	dl_data_indication(S, AX25_PID_SEGMENTATION_FRAGMENT, oversized)

	assert.Nil(t, S.ra_buff, "Oversized reassembly should be discarded")
}

// reassembleSegments puts dl_data_request output back together the way
// the remote reassembler would.
func reassembleSegments(t *testing.T, segments []*cdata_t, n1 int) (int, []byte) {
	t.Helper()

	if len(segments) == 1 && segments[0].pid != AX25_PID_SEGMENTATION_FRAGMENT {
		return segments[0].pid, segments[0].data
	}

	var first = segments[0]
	assert.Equal(t, AX25_PID_SEGMENTATION_FRAGMENT, first.pid)
	assert.NotZero(t, first.data[0]&0x80, "First segment must carry the first flag")
	assert.LessOrEqual(t, len(first.data), n1)

	var following = int(first.data[0] & 0x7f)
	assert.Len(t, segments, following+1, "Segment count must match the header")

	var pid = int(first.data[1])
	var whole = append([]byte{}, first.data[2:]...)

	for i, seg := range segments[1:] {
		assert.Equal(t, AX25_PID_SEGMENTATION_FRAGMENT, seg.pid)
		assert.Zero(t, seg.data[0]&0x80, "Only the first segment has the first flag")
		assert.Equal(t, following-1-i, int(seg.data[0]&0x7f), "Countdown must decrease by one")
		assert.LessOrEqual(t, len(seg.data), n1)
		whole = append(whole, seg.data[1:]...)
	}

	return pid, whole
}

// Outgoing data larger than N1 is segmented and reassembles to the original
func TestAX25LinkSegmenterRoundTrip(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnvV22(t)

	initiateConnect(t, MY_CALL, THEIR_CALL, CHANNEL)

	var addrs [AX25_MAX_ADDRS]string
	addrs[OWNCALL] = THEIR_CALL
	addrs[PEERCALL] = MY_CALL
	var pp = ax25_u_frame(addrs, 2, cr_res, frame_type_U_UA, 1, 0, nil)
	receiveFrame(t, pp, CHANNEL)

	var S = list_head
	assert.Equal(t, state_3_connected, S.state)
	assert.Equal(t, AX25_N1_PACLEN_DEFAULT, S.n1_paclen)

	// One below, at, and above N1, plus some larger sizes.
	for _, size := range []int{255, 256, 257, 512, 1280} {
		var payload = make([]byte, size)
		for i := range payload {
			payload[i] = byte(i*31 + 7)
		}

		var E = new(dlq_item_t)
		E._type = DLQ_XMIT_DATA_REQUEST
		E._chan = CHANNEL
		E.addrs[OWNCALL] = MY_CALL
		E.addrs[PEERCALL] = THEIR_CALL
		E.num_addr = 2
		E.txdata = cdata_new(0xF0, payload)
		dl_data_request(E)

		var segments []*cdata_t
		for txdata := S.i_frame_queue; txdata != nil; txdata = txdata.next {
			segments = append(segments, txdata)
		}
		S.i_frame_queue = nil

		if assert.NotEmpty(t, segments, "size %d", size) {
			var pid, whole = reassembleSegments(t, segments, S.n1_paclen)
			assert.Equal(t, 0xF0, pid, "size %d", size)
			assert.True(t, bytes.Equal(payload, whole), "size %d should reassemble to the original", size)

			// Feed the segments through the receive side reassembler too.
			for _, seg := range segments {
				dl_data_indication(S, seg.pid, seg.data)
			}
			assert.Nil(t, S.ra_buff, "Reassembler should be idle after the last segment")

			for _, seg := range segments {
				cdata_delete(seg)
			}
		}
	}
}

// Same round trip for arbitrary sizes
func TestAX25LinkSegmenterRoundTripProperty(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnvV22(t)

	initiateConnect(t, MY_CALL, THEIR_CALL, CHANNEL)

	var addrs [AX25_MAX_ADDRS]string
	addrs[OWNCALL] = THEIR_CALL
	addrs[PEERCALL] = MY_CALL
	var pp = ax25_u_frame(addrs, 2, cr_res, frame_type_U_UA, 1, 0, nil)
	receiveFrame(t, pp, CHANNEL)

	var S = list_head
	assert.Equal(t, state_3_connected, S.state)

	rapid.Check(t, func(t *rapid.T) {
		var payload = rapid.SliceOfN(rapid.Byte(), 1, 2000).Draw(t, "payload")

		var E = new(dlq_item_t)
		E._type = DLQ_XMIT_DATA_REQUEST
		E._chan = CHANNEL
		E.addrs[OWNCALL] = MY_CALL
		E.addrs[PEERCALL] = THEIR_CALL
		E.num_addr = 2
		E.txdata = cdata_new(0xF0, payload)
		dl_data_request(E)

		var whole []byte
		var firstSeen = false
		for txdata := S.i_frame_queue; txdata != nil; txdata = txdata.next {
			if txdata.pid != AX25_PID_SEGMENTATION_FRAGMENT {
				whole = append(whole, txdata.data...)
			} else if txdata.data[0]&0x80 != 0 {
				firstSeen = true
				whole = append(whole, txdata.data[2:]...)
			} else {
				whole = append(whole, txdata.data[1:]...)
			}
			assert.LessOrEqual(t, len(txdata.data), S.n1_paclen)
		}
		assert.Equal(t, len(payload) > S.n1_paclen, firstSeen)
		assert.True(t, bytes.Equal(payload, whole))

		for txdata := S.i_frame_queue; txdata != nil; {
			var next = txdata.next
			cdata_delete(txdata)
			txdata = next
		}
		S.i_frame_queue = nil
	})
}

// ============================================================================
// Link Multiplexer Tests
// ============================================================================

// Multiple concurrent links
func TestAX25LinkMultipleConcurrentLinks(t *testing.T) {
	const CHANNEL = 0

	setupTestEnv(t)

	// Establish first connection
	initiateConnect(t, "STA1", "STA2", CHANNEL)
	var addrs [AX25_MAX_ADDRS]string
	addrs[OWNCALL] = "STA2"
	addrs[PEERCALL] = "STA1"
	var pp = ax25_u_frame(addrs, 2, cr_res, frame_type_U_UA, 1, 0, nil)
	receiveFrame(t, pp, CHANNEL)

	var link1 = list_head
	assert.NotNil(t, link1)
	assert.Equal(t, state_3_connected, link1.state)

	// Establish second connection (different callsigns)
	initiateConnect(t, "STA1", "STA3", CHANNEL)
	addrs[OWNCALL] = "STA3"
	addrs[PEERCALL] = "STA1"
	pp = ax25_u_frame(addrs, 2, cr_res, frame_type_U_UA, 1, 0, nil)
	receiveFrame(t, pp, CHANNEL)

	// Both links should exist
	assert.NotNil(t, list_head)
	// The new link is at the head
	var link2 = list_head
	assert.Equal(t, state_3_connected, link2.state)

	// Original link should still be connected
	assert.Equal(t, state_3_connected, link1.state)

	// Links should be different
	assert.NotEqual(t, link1, link2)
}

// Link isolation - action on one link doesn't affect another
func TestAX25LinkIsolation(t *testing.T) {
	const CHANNEL = 0

	setupTestEnv(t)

	// Establish first connection
	initiateConnect(t, "STA1", "STA2", CHANNEL)
	var addrs [AX25_MAX_ADDRS]string
	addrs[OWNCALL] = "STA2"
	addrs[PEERCALL] = "STA1"
	var pp = ax25_u_frame(addrs, 2, cr_res, frame_type_U_UA, 1, 0, nil)
	receiveFrame(t, pp, CHANNEL)

	var link1 = list_head

	// Establish second connection
	initiateConnect(t, "STA1", "STA3", CHANNEL)
	addrs[OWNCALL] = "STA3"
	addrs[PEERCALL] = "STA1"
	pp = ax25_u_frame(addrs, 2, cr_res, frame_type_U_UA, 1, 0, nil)
	receiveFrame(t, pp, CHANNEL)

	var link2 = list_head

	// Modify state on link2
	link2.vs = 5
	link2.vr = 3

	// Link1 should be unaffected
	assert.Equal(t, 0, link1.vs)
	assert.Equal(t, 0, link1.vr)
}

// ============================================================================
// Exception Condition Tests
// ============================================================================

// Clear exception conditions
func TestAX25LinkClearExceptionConditions(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	// Set all exception conditions
	S.peer_receiver_busy = true
	S.reject_exception = true
	S.own_receiver_busy = true
	S.acknowledge_pending = true

	// Clear them
	clear_exception_conditions(S)

	assert.False(t, S.peer_receiver_busy)
	assert.False(t, S.reject_exception)
	assert.False(t, S.own_receiver_busy)
	assert.False(t, S.acknowledge_pending)
}

// Reject exception flag behavior
func TestAX25LinkRejectExceptionFlag(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	// Initially not set
	assert.False(t, S.reject_exception)

	var addrs [AX25_MAX_ADDRS]string
	addrs[AX25_DESTINATION] = MY_CALL
	addrs[AX25_SOURCE] = THEIR_CALL

	// First receive frame 0
	var pp = ax25_i_frame(addrs, 2, cr_cmd, 8, 0, 0, 0, AX25_PID_NO_LAYER_3, []byte("0"))
	receiveFrame(t, pp, CHANNEL)
	assert.Equal(t, 1, S.vr)

	// Now receive frame 2 (skip 1) - should set reject_exception
	pp = ax25_i_frame(addrs, 2, cr_cmd, 8, 0, 2, 0, AX25_PID_NO_LAYER_3, []byte("2"))
	receiveFrame(t, pp, CHANNEL)
	assert.True(t, S.reject_exception, "Reject exception should be set")

	// Receive expected frame 1 - should clear reject_exception
	pp = ax25_i_frame(addrs, 2, cr_cmd, 8, 0, 1, 0, AX25_PID_NO_LAYER_3, []byte("1"))
	receiveFrame(t, pp, CHANNEL)
	assert.False(t, S.reject_exception, "Reject exception should be cleared")
}

// ============================================================================
// Retry Counter and Version Tests
// ============================================================================

// Retry counter management
func TestAX25LinkRetryCounter(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	// Initial value
	assert.Equal(t, 0, S.rc)

	// Set and verify
	SET_RC(S, 5)
	assert.Equal(t, 5, S.rc)

	// Track peak value
	assert.GreaterOrEqual(t, S.peak_rc_value, 0)
}

// Set version 2.0
func TestAX25LinkSetVersion20(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	set_version_2_0(S)

	assert.Equal(t, srej_none, S.srej_enable)
	assert.Equal(t, ax25_modulo_t(8), S.modulo)
}

// Set version 2.2
func TestAX25LinkSetVersion22(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnvV22(t)

	initiateConnect(t, MY_CALL, THEIR_CALL, CHANNEL)

	var addrs [AX25_MAX_ADDRS]string
	addrs[OWNCALL] = THEIR_CALL
	addrs[PEERCALL] = MY_CALL
	var pp = ax25_u_frame(addrs, 2, cr_res, frame_type_U_UA, 1, 0, nil)
	receiveFrame(t, pp, CHANNEL)

	var S = list_head

	// Should be v2.2
	assert.Equal(t, srej_single, S.srej_enable)
	assert.Equal(t, ax25_modulo_t(128), S.modulo)
}

// ============================================================================
// Data Link Queue Request Tests
// ============================================================================

// Connect request handling
func TestAX25LinkConnectRequestTypes(t *testing.T) {
	const CHANNEL = 0

	setupTestEnv(t)

	var E = new(dlq_item_t)
	E._type = DLQ_CONNECT_REQUEST
	E._chan = CHANNEL
	E.addrs[OWNCALL] = "TEST1"
	E.addrs[PEERCALL] = "TEST2"
	E.num_addr = 2
	E.client = 0

	dl_connect_request(E)

	assert.NotNil(t, list_head)
	assert.Equal(t, state_1_awaiting_connection, list_head.state)
}

// Disconnect request handling
func TestAX25LinkDisconnectRequestTypes(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	var E = new(dlq_item_t)
	E._type = DLQ_DISCONNECT_REQUEST
	E._chan = CHANNEL
	E.addrs[OWNCALL] = MY_CALL
	E.addrs[PEERCALL] = THEIR_CALL
	E.num_addr = 2
	E.client = 0

	dl_disconnect_request(E)

	assert.Equal(t, state_2_awaiting_release, S.state)
}

// Client cleanup removes all links belonging to the client
func TestAX25LinkClientCleanup(t *testing.T) {
	const CHANNEL = 0

	setupTestEnv(t)

	establishConnection(t, "STA1", "STA2", CHANNEL)
	assert.NotNil(t, list_head)

	var E = new(dlq_item_t)
	E._type = DLQ_CLIENT_CLEANUP
	E.client = 0
	dl_client_cleanup(E)

	assert.Nil(t, list_head, "Links for the client should be gone")
}

// ============================================================================
// TEST and UI Frame Tests
// ============================================================================

// TEST frame handling
func TestAX25LinkTESTFrame(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)
	drainTransmitQueue(t, CHANNEL)

	// Receive TEST command
	var addrs [AX25_MAX_ADDRS]string
	addrs[AX25_DESTINATION] = MY_CALL
	addrs[AX25_SOURCE] = THEIR_CALL
	var testInfo = []byte("Test data")
	var pp = ax25_u_frame(addrs, 2, cr_cmd, frame_type_U_TEST, 1, 0, testInfo)
	receiveFrame(t, pp, CHANNEL)

	// Should still be connected (TEST doesn't change state)
	assert.Equal(t, state_3_connected, S.state)

	// TEST command should be echoed back as a TEST response.
	var sent = drainTransmitQueue(t, CHANNEL)
	if assert.Len(t, sent, 1) {
		cr, _, pf, _, _, ftype := ax25_frame_type(sent[0])
		assert.Equal(t, frame_type_U_TEST, ftype)
		assert.Equal(t, cr_res, cr)
		assert.Equal(t, 1, pf)
	}
}

// UI frame handling in connected state
func TestAX25LinkUIFrameConnected(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	// Receive UI frame
	var addrs [AX25_MAX_ADDRS]string
	addrs[AX25_DESTINATION] = MY_CALL
	addrs[AX25_SOURCE] = THEIR_CALL
	var pp = ax25_u_frame(addrs, 2, cr_cmd, frame_type_U_UI, 0, AX25_PID_NO_LAYER_3, []byte("UI data"))
	receiveFrame(t, pp, CHANNEL)

	// Should still be connected
	assert.Equal(t, state_3_connected, S.state)
}

// ============================================================================
// Statistics Tests
// ============================================================================

// Frame count statistics
func TestAX25LinkFrameCountStats(t *testing.T) {
	var MY_CALL = "TEST1"
	var THEIR_CALL = "TEST2"
	const CHANNEL = 0

	setupTestEnv(t)

	var S = establishConnection(t, MY_CALL, THEIR_CALL, CHANNEL)

	var addrs [AX25_MAX_ADDRS]string
	addrs[AX25_DESTINATION] = MY_CALL
	addrs[AX25_SOURCE] = THEIR_CALL

	// Receive some I-frames
	for i := 0; i < 3; i++ {
		var pp = ax25_i_frame(addrs, 2, cr_cmd, 8, 0, i, 0, AX25_PID_NO_LAYER_3, []byte("data"))
		receiveFrame(t, pp, CHANNEL)
	}

	// Check that I-frame count increased
	assert.GreaterOrEqual(t, S.count_recv_frame_type[frame_type_I], 3)
}
