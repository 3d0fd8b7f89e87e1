package direwolf

/*-------------------------------------------------------------------
 *
 * Name:	dlq
 *
 * Purpose:	Queue for events being sent to the data link state machine.
 *
 * Description:	Frames received over the radio, requests from client
 *		applications, and channel status reports all funnel
 *		through this one queue.  A single processing thread
 *		(recv_process) takes items off, which is what makes
 *		the state machine single threaded.
 *
 *--------------------------------------------------------------------*/

import (
	"sync"
	"time"
)

type dlq_type_t int

const (
	DLQ_REC_FRAME dlq_type_t = iota
	DLQ_CONNECT_REQUEST
	DLQ_DISCONNECT_REQUEST
	DLQ_XMIT_DATA_REQUEST
	DLQ_REGISTER_CALLSIGN
	DLQ_UNREGISTER_CALLSIGN
	DLQ_OUTSTANDING_FRAMES_REQUEST
	DLQ_CHANNEL_BUSY
	DLQ_SEIZE_CONFIRM
	DLQ_CLIENT_CLEANUP
)

/*
 * A block of connected mode data, kept around in case
 * it needs to be retransmitted.
 */

const TXDATA_MAGIC = 0x09110911

type cdata_t struct {
	magic int
	next  *cdata_t /* Next in chain. */
	pid   int      /* Protocol id. */
	data  []byte   /* Data bytes. */
}

/*
 * One event for the data link state machine.
 * Which fields are meaningful depends on the type.
 */

type dlq_item_t struct {
	nextp *dlq_item_t /* Next in queue. */

	_type dlq_type_t /* Type of item. */

	_chan int /* Radio channel of origin. */

	/* Used by DLQ_REC_FRAME. */

	pp *packet_t /* Pointer to frame structure. */

	/* Used by requests from a client application, connect, etc. */

	addrs [AX25_MAX_ADDRS]string

	num_addr int /* Range 2 .. 10. */

	client int

	/* Used by DLQ_XMIT_DATA_REQUEST. */

	txdata *cdata_t

	/* Used by DLQ_CHANNEL_BUSY. */

	activity int /* OCTYPE_PTT or OCTYPE_DCD. */
	status   int /* 1 = active, 0 = quiet. */
}

/*
 * OWNCALL is the source address of an outgoing connect request,
 * PEERCALL the station being connected to.  These happen to line
 * up with the frame address positions for a transmitted frame.
 */

const OWNCALL = AX25_SOURCE
const PEERCALL = AX25_DESTINATION

var dlq_queue_head *dlq_item_t /* Head of linked list for queue. */

var dlq_mutex sync.Mutex /* Critical section for updating queue. */

var dlq_wake_up_chan = make(chan struct{}) /* Notify processing thread when queue not empty. */

var recv_thread_is_waiting bool

var was_init bool /* was initialization performed? */

var s_new_count = 0 /* To detect memory leak for queue items. */
var s_delete_count = 0

var s_cdata_new_count = 0 /* To detect memory leak for connected mode data. */
var s_cdata_delete_count = 0

func dlq_init() {

	dlq_queue_head = nil
	recv_thread_is_waiting = false
	was_init = true
}

func append_to_queue(pnew *dlq_item_t) {

	if !was_init {
		dlq_init()
	}

	pnew.nextp = nil

	dlq_mutex.Lock()

	var queue_length int
	if dlq_queue_head == nil {
		dlq_queue_head = pnew
		queue_length = 1
	} else {
		queue_length = 2 /* head + new one */
		var plast = dlq_queue_head
		for plast.nextp != nil {
			plast = plast.nextp
			queue_length++
		}
		plast.nextp = pnew
	}

	dlq_mutex.Unlock()

	// The processing thread should be draining this queue quickly.
	// If it piles up, that thread is probably blocked writing to
	// a client that is not reading.

	if queue_length > 10 {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Received frame queue is out of control. Length=%d.\n", queue_length)
		dw_printf("Processing thread is probably frozen.\n")
	}

	if recv_thread_is_waiting {
		dlq_wake_up_chan <- struct{}{}
	}

} /* end append_to_queue */

/*-------------------------------------------------------------------
 *
 * Name:        dlq_rec_frame
 *
 * Purpose:     Add a received packet to the end of the queue.
 *
 *		This corresponds to PH-DATA Indication in the
 *		AX.25 protocol spec.
 *
 * Inputs:	channel	- Channel it was received on, 0 is first.
 *
 *		pp	- Address of packet object.
 *			  Caller should NOT make any references to it after
 *			  this point because it could be deleted at any time.
 *
 *--------------------------------------------------------------------*/

func dlq_rec_frame(channel int, pp *packet_t) {

	Assert(pp != nil)

	if channel < 0 || channel >= MAX_TOTAL_CHANS {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Internal Error, dlq_rec_frame, bad channel %d.\n", channel)
		ax25_delete(pp)
		return
	}

	var pnew = new(dlq_item_t)
	s_new_count++

	pnew._type = DLQ_REC_FRAME
	pnew._chan = channel
	pnew.pp = pp

	append_to_queue(pnew)

} /* end dlq_rec_frame */

/*-------------------------------------------------------------------
 *
 * Name:        dlq_connect_request
 *
 * Purpose:     Client application has requested connection to another station.
 *
 * Inputs:	addrs		- Source (owncall), destination (peercall),
 *				  and possibly digipeaters.
 *
 *		num_addr	- Number of addresses.  2 to 10.
 *
 *		channel		- Channel, 0 is first.
 *
 *		client		- Client application instance.  We could have multiple
 *				  applications, all on the same channel, connecting
 *				  to different stations.  We need to know which one
 *				  should get the results.
 *
 *		pid		- Protocol ID for data.  Normally 0xf0 but the API
 *				  allows the client app to use something non-standard
 *				  for special situations.
 *
 *--------------------------------------------------------------------*/

func dlq_connect_request(addrs [AX25_MAX_ADDRS]string, num_addr int, channel int, client int, pid int) {

	Assert(channel >= 0 && channel < MAX_RADIO_CHANS)

	var pnew = new(dlq_item_t)
	s_new_count++

	pnew._type = DLQ_CONNECT_REQUEST
	pnew._chan = channel
	pnew.addrs = addrs
	pnew.num_addr = num_addr
	pnew.client = client

	append_to_queue(pnew)

} /* end dlq_connect_request */

func dlq_disconnect_request(addrs [AX25_MAX_ADDRS]string, num_addr int, channel int, client int) {

	Assert(channel >= 0 && channel < MAX_RADIO_CHANS)

	var pnew = new(dlq_item_t)
	s_new_count++

	pnew._type = DLQ_DISCONNECT_REQUEST
	pnew._chan = channel
	pnew.addrs = addrs
	pnew.num_addr = num_addr
	pnew.client = client

	append_to_queue(pnew)

} /* end dlq_disconnect_request */

/*-------------------------------------------------------------------
 *
 * Name:        dlq_outstanding_frames_request
 *
 * Purpose:     Client application wants to know the number of information
 *		frames, supplied by the client, that have not yet been
 *		delivered to the remote station.
 *
 * Description:	The data link state machine will count up all information frames
 *		for the given source(mycall) / destination(remote) / channel link.
 *		A 'Y' response will be sent back to the client application.
 *
 *--------------------------------------------------------------------*/

func dlq_outstanding_frames_request(addrs [AX25_MAX_ADDRS]string, num_addr int, channel int, client int) {

	Assert(channel >= 0 && channel < MAX_RADIO_CHANS)

	var pnew = new(dlq_item_t)
	s_new_count++

	pnew._type = DLQ_OUTSTANDING_FRAMES_REQUEST
	pnew._chan = channel
	pnew.addrs = addrs
	pnew.num_addr = num_addr
	pnew.client = client

	append_to_queue(pnew)

} /* end dlq_outstanding_frames_request */

/*-------------------------------------------------------------------
 *
 * Name:        dlq_xmit_data_request
 *
 * Purpose:     Client application has requested transmission of connected
 *		data over an established link.
 *
 * Inputs:	addrs		- Source (owncall), destination (peercall).
 *				  First two are used to uniquely identify the link.
 *				  Any digipeaters involved are remembered
 *				  from when the link was established.
 *
 *		num_addr	- Number of addresses.  2 to 10.
 *
 *		channel		- Channel, 0 is first.
 *
 *		client		- Client application instance.
 *
 *		pid		- Protocol ID for data.
 *
 *		xdata		- The data bytes.
 *
 *--------------------------------------------------------------------*/

func dlq_xmit_data_request(addrs [AX25_MAX_ADDRS]string, num_addr int, channel int, client int, pid int, xdata []byte) {

	Assert(channel >= 0 && channel < MAX_RADIO_CHANS)

	var pnew = new(dlq_item_t)
	s_new_count++

	pnew._type = DLQ_XMIT_DATA_REQUEST
	pnew._chan = channel
	pnew.addrs = addrs
	pnew.num_addr = num_addr
	pnew.client = client

	/* Attach the transmit data. */

	pnew.txdata = cdata_new(pid, xdata)

	append_to_queue(pnew)

} /* end dlq_xmit_data_request */

/*-------------------------------------------------------------------
 *
 * Name:        dlq_register_callsign
 *		dlq_unregister_callsign
 *
 * Purpose:     Register callsigns that we will recognize for incoming
 *		connection requests.
 *
 * Description:	The data link state machine does not use any global MYCALL.
 *		For outgoing frames, the client supplies the source callsign.
 *		For incoming connection requests, we need to know what
 *		address(es) to respond to.
 *
 *		Note that one client application can register multiple
 *		callsigns for multiple channels.  Different clients can
 *		register different addresses on the same channel.
 *
 *--------------------------------------------------------------------*/

func dlq_register_callsign(addr string, channel int, client int) {

	Assert(channel >= 0 && channel < MAX_RADIO_CHANS)

	var pnew = new(dlq_item_t)
	s_new_count++

	pnew._type = DLQ_REGISTER_CALLSIGN
	pnew._chan = channel
	pnew.addrs[0] = addr
	pnew.num_addr = 1
	pnew.client = client

	append_to_queue(pnew)

} /* end dlq_register_callsign */

func dlq_unregister_callsign(addr string, channel int, client int) {

	Assert(channel >= 0 && channel < MAX_RADIO_CHANS)

	var pnew = new(dlq_item_t)
	s_new_count++

	pnew._type = DLQ_UNREGISTER_CALLSIGN
	pnew._chan = channel
	pnew.addrs[0] = addr
	pnew.num_addr = 1
	pnew.client = client

	append_to_queue(pnew)

} /* end dlq_unregister_callsign */

/*-------------------------------------------------------------------
 *
 * Name:        dlq_channel_busy
 *
 * Purpose:     Inform data link state machine about activity on the radio channel.
 *
 * Inputs:	channel		- Radio channel number.
 *
 *		activity	- OCTYPE_PTT or OCTYPE_DCD.
 *				  Other values will be discarded.
 *
 *		status		- 1 for active or 0 for quiet.
 *
 * Description:	Notify the link state machine about changes in carrier detect
 *		and our transmitter.
 *		This is needed for pausing some of our timers.  For example,
 *		if we transmit a frame and expect a response in 3 seconds, that
 *		might be delayed because someone else is using the channel.
 *
 *--------------------------------------------------------------------*/

func dlq_channel_busy(channel int, activity int, status int) {

	if activity == OCTYPE_PTT || activity == OCTYPE_DCD {

		var pnew = new(dlq_item_t)
		s_new_count++

		pnew._type = DLQ_CHANNEL_BUSY
		pnew._chan = channel
		pnew.activity = activity
		pnew.status = status

		append_to_queue(pnew)
	}

} /* end dlq_channel_busy */

/*-------------------------------------------------------------------
 *
 * Name:        dlq_seize_confirm
 *
 * Purpose:     Inform data link state machine that the transmitter is on.
 *		This is in response to lm_seize_request.
 *
 * Description:	When removed from the data link state machine queue, this
 *		becomes lm_seize_confirm.
 *
 *--------------------------------------------------------------------*/

func dlq_seize_confirm(channel int) {

	var pnew = new(dlq_item_t)
	s_new_count++

	pnew._type = DLQ_SEIZE_CONFIRM
	pnew._chan = channel

	append_to_queue(pnew)

} /* end dlq_seize_confirm */

/*-------------------------------------------------------------------
 *
 * Name:        dlq_client_cleanup
 *
 * Purpose:     Client application has disappeared.
 *		i.e. The TCP connection has been broken.
 *
 * Description:	Notify the link state machine that given client has gone away.
 *		Clean up all information related to that client application.
 *
 *--------------------------------------------------------------------*/

func dlq_client_cleanup(client int) {

	var pnew = new(dlq_item_t)
	s_new_count++

	// All we care about is the client number.

	pnew._type = DLQ_CLIENT_CLEANUP
	pnew.client = client

	append_to_queue(pnew)

} /* end dlq_client_cleanup */

/*-------------------------------------------------------------------
 *
 * Name:        dlq_wait_while_empty
 *
 * Purpose:     Sleep while the queue is empty rather than polling.
 *
 * Inputs:	timeout		- Return at this time even if queue is empty.
 *				  Zero value for no timeout.
 *
 * Returns:	True if timed out before any event arrived.
 *
 *--------------------------------------------------------------------*/

func dlq_wait_while_empty(timeout time.Time) bool {
	var timed_out_result = false

	if !was_init {
		dlq_init()
	}

	if dlq_queue_head == nil {

		recv_thread_is_waiting = true
		if !timeout.IsZero() {
			select {
			case <-dlq_wake_up_chan:
				// Signalled
			case <-time.After(time.Until(timeout)):
				timed_out_result = true
			}
		} else {
			<-dlq_wake_up_chan
		}
		recv_thread_is_waiting = false
	}

	return (timed_out_result)

} /* end dlq_wait_while_empty */

/*-------------------------------------------------------------------
 *
 * Name:        dlq_remove
 *
 * Purpose:     Remove an item from the head of the queue.
 *
 * Returns:	Pointer to a queue item.  Caller is responsible for deleting it.
 *		nil if queue is empty.
 *
 *--------------------------------------------------------------------*/

func dlq_remove() *dlq_item_t {

	if !was_init {
		dlq_init()
	}

	dlq_mutex.Lock()

	var result *dlq_item_t
	if dlq_queue_head != nil {
		result = dlq_queue_head
		dlq_queue_head = dlq_queue_head.nextp
	}

	dlq_mutex.Unlock()

	return (result)
}

func dlq_delete(pitem *dlq_item_t) {
	if pitem == nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("INTERNAL ERROR: dlq_delete()  given nil pointer.\n")
		return
	}

	s_delete_count++

	if pitem.pp != nil {
		ax25_delete(pitem.pp)
		pitem.pp = nil
	}

	if pitem.txdata != nil {
		cdata_delete(pitem.txdata)
		pitem.txdata = nil
	}
} /* end dlq_delete */

/*-------------------------------------------------------------------
 *
 * Name:        cdata_new
 *
 * Purpose:     Allocate a block of data for sending and receiving
 *		connected data.
 *
 * Inputs:	pid	- protocol id.
 *		data	- the bytes.  Can be nil for the segment reassembler
 *			  which starts with an empty block and appends.
 *
 * Description:	The flow goes like this:
 *
 *		Client application establishes a connection with another station.
 *		Client application calls "dlq_xmit_data_request."
 *		A copy of the data is made with this function and attached to the queue item.
 *		The txdata block is attached to the appropriate link state machine.
 *		At the proper time, it is transmitted in an I frame.
 *		It needs to be kept around in case it needs to be retransmitted.
 *		When no longer needed, it is freed with cdata_delete.
 *
 *--------------------------------------------------------------------*/

func cdata_new(pid int, data []byte) *cdata_t {

	s_cdata_new_count++

	var cdata = new(cdata_t)

	cdata.magic = TXDATA_MAGIC
	cdata.next = nil
	cdata.pid = pid
	cdata.data = make([]byte, len(data))
	copy(cdata.data, data)

	return (cdata)

} /* end cdata_new */

func cdata_delete(cdata *cdata_t) {
	if cdata == nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("INTERNAL ERROR: cdata_delete()  given nil pointer.\n")
		return
	}

	if cdata.magic != TXDATA_MAGIC {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("INTERNAL ERROR: cdata_delete()  given corrupted data.\n")
		return
	}

	s_cdata_delete_count++

	cdata.magic = 0

} /* end cdata_delete */

/*-------------------------------------------------------------------
 *
 * Name:        cdata_check_leak
 *
 * Purpose:     Check for memory leak of cdata items.
 *		This is called when we expect no outstanding allocations.
 *
 *--------------------------------------------------------------------*/

func cdata_check_leak() {
	if s_cdata_delete_count != s_cdata_new_count {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Internal Error, cdata_check_leak, new=%d, delete=%d\n", s_cdata_new_count, s_cdata_delete_count)
	}

} /* end cdata_check_leak */
