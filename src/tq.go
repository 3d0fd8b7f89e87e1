package direwolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Transmit queue - hold packets for transmission until the channel is clear.
 *
 * Description:	Producers of packets to be transmitted call tq_append and then
 *		go merrily on their way, unconcerned about when the packet might
 *		actually get transmitted.
 *
 *		Another thread waits until the channel is clear and then removes
 *		packets from the queue and transmits them.
 *
 *---------------------------------------------------------------*/

import (
	"sync"
)

const TQ_NUM_PRIO = 2 /* Number of priorities. */

const TQ_PRIO_0_HI = 0
const TQ_PRIO_1_LO = 1

var queue_head [MAX_RADIO_CHANS][TQ_NUM_PRIO]*packet_t /* Head of linked list for each queue. */

var tq_mutex sync.Mutex /* Critical section for updating queues. */
/* Just one for all queues. */

var wake_up_cond [MAX_RADIO_CHANS]*sync.Cond /* Notify transmit thread when queue not empty. */

var wake_up_mutex [MAX_RADIO_CHANS]sync.Mutex /* Required by cond_wait. */

var xmit_thread_is_waiting [MAX_RADIO_CHANS]bool

var save_audio_config_p *audio_s

/*-------------------------------------------------------------------
 *
 * Name:        tq_init
 *
 * Purpose:     Initialize the transmit queue.
 *
 * Inputs:	audio_config_p	- Channel configuration.
 *
 * Description:	Initialize the queue to be empty and set up other
 *		mechanisms for sharing it between different threads.
 *
 *		We have different timing rules for different types of
 *		packets so they are put into different queues.
 *
 *		High Priority -
 *
 *			Acknowledgements and other frames that should be
 *			expedited go out first.
 *
 *		Low Priority -
 *
 *			Everything else.
 *
 *		Each radio channel has its own pair of queues.
 *
 *--------------------------------------------------------------------*/

func tq_init(audio_config_p *audio_s) {

	save_audio_config_p = audio_config_p

	for c := 0; c < MAX_RADIO_CHANS; c++ {
		for p := 0; p < TQ_NUM_PRIO; p++ {
			queue_head[c][p] = nil
		}
	}

	for c := 0; c < MAX_RADIO_CHANS; c++ {

		xmit_thread_is_waiting[c] = false

		if audio_config_p.chan_medium[c] == MEDIUM_RADIO {
			wake_up_cond[c] = sync.NewCond(&wake_up_mutex[c])
		}
	}

} /* end tq_init */

/*-------------------------------------------------------------------
 *
 * Name:        tq_append
 *
 * Purpose:     Add an unconnected (UI) packet to the end of the specified
 *		transmit queue.
 *
 * 		Connected mode is a little different.  Use lm_data_request instead.
 *
 * Inputs:	channel	- Channel, 0 is first.
 *
 *		prio	- Priority, use TQ_PRIO_0_HI for digipeated or
 *				TQ_PRIO_1_LO for normal.
 *
 *		pp	- Address of packet object.
 *				Caller should NOT make any references to
 *				it after this point because it could
 *				be deleted at any time.
 *
 * Description:	Add packet to end of linked list.
 *		Signal the transmit thread if the queue was formerly empty.
 *
 * IMPORTANT!	Don't make any further references to the packet object after
 *		giving it to tq_append.
 *
 *--------------------------------------------------------------------*/

func tq_append(channel int, prio int, pp *packet_t) {

	Assert(prio >= 0 && prio < TQ_NUM_PRIO)

	if pp == nil {
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("INTERNAL ERROR:  tq_append nil packet pointer. Please report this!\n")
		return
	}

	// Error if trying to transmit to a radio channel which was not configured.

	if channel < 0 || channel >= MAX_RADIO_CHANS || save_audio_config_p.chan_medium[channel] == MEDIUM_NONE {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("ERROR - Request to transmit on invalid radio channel %d.\n", channel)
		dw_printf("This is probably a client application error, not a problem with direwolf.\n")
		ax25_delete(pp)
		return
	}

	/*
	 * Is transmit queue out of control?
	 *
	 * There is no technical reason to limit the transmit packet queue length;
	 * it is just a useful sanity check for something going wrong.
	 */

	if tq_count(channel, prio, "", "", 0) > 100 {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Transmit packet queue for channel %d is too long.  Discarding packet.\n", channel)
		dw_printf("Perhaps the channel is so busy there is no opportunity to send.\n")
		ax25_delete(pp)
		return
	}

	tq_mutex.Lock()

	if queue_head[channel][prio] == nil {
		queue_head[channel][prio] = pp
	} else {
		var plast = queue_head[channel][prio]
		for {
			var pnext = ax25_get_nextp(plast)
			if pnext == nil {
				break
			}
			plast = pnext
		}
		ax25_set_nextp(plast, pp)
	}

	tq_mutex.Unlock()

	if xmit_thread_is_waiting[channel] {
		wake_up_mutex[channel].Lock()
		wake_up_cond[channel].Signal()
		wake_up_mutex[channel].Unlock()
	}
} /* end tq_append */

/*-------------------------------------------------------------------
 *
 * Name:        lm_data_request
 *
 * Purpose:     Add an AX.25 frame to the end of the specified transmit queue.
 *
 * Inputs:	channel	- Channel, 0 is first.
 *
 *		prio	- Priority, use TQ_PRIO_0_HI for priority (expedited)
 *				or TQ_PRIO_1_LO for normal.
 *
 *		pp	- Address of packet object.
 *				Caller should NOT make any references to
 *				it after this point because it could
 *				be deleted at any time.
 *
 * Description:	5.4.
 *
 *		LM-DATA Request. The Data-link State Machine uses this primitive to pass
 *		frames of any type (SABM, RR, UI, etc.) to the Link Multiplexer State Machine.
 *
 *		LM-EXPEDITED-DATA Request. The data-link machine uses this primitive to
 *		request transmission of each digipeat or expedite data frame.
 *
 * Implementation: Add packet to end of linked list.
 *		Signal the transmit thread if the queue was formerly empty.
 *
 * IMPORTANT!	Don't make any further references to the packet object after
 *		giving it to lm_data_request.
 *
 *--------------------------------------------------------------------*/

func lm_data_request(channel int, prio int, pp *packet_t) {

	Assert(prio >= 0 && prio < TQ_NUM_PRIO)

	if pp == nil {
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("INTERNAL ERROR:  lm_data_request nil packet pointer. Please report this!\n")
		return
	}

	if channel < 0 || channel >= MAX_RADIO_CHANS || save_audio_config_p.chan_medium[channel] != MEDIUM_RADIO {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("ERROR - Request to transmit on invalid radio channel %d.\n", channel)
		dw_printf("Connected packet mode requires a radio channel.\n")
		ax25_delete(pp)
		return
	}

	/*
	 * Is transmit queue out of control?
	 */

	if tq_count(channel, prio, "", "", 0) > 250 {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Warning: Transmit packet queue for channel %d is extremely long.\n", channel)
		dw_printf("Perhaps the channel is so busy there is no opportunity to send.\n")
	}

	tq_mutex.Lock()

	if queue_head[channel][prio] == nil {
		queue_head[channel][prio] = pp
	} else {
		var plast = queue_head[channel][prio]
		for {
			var pnext = ax25_get_nextp(plast)
			if pnext == nil {
				break
			}
			plast = pnext
		}
		ax25_set_nextp(plast, pp)
	}

	tq_mutex.Unlock()

	// Appendix C2a, from the AX.25 protocol spec, says that a priority frame
	// will start transmission.  If not already transmitting, normal frames
	// will pile up until LM-SEIZE Request starts transmission.

	// Erratum: It doesn't take long for that to fail.
	// We send SABM(e) frames to the transmit queue and the transmitter doesn't get activated.
	// So wake up the transmit thread for either priority.

	if xmit_thread_is_waiting[channel] {
		wake_up_mutex[channel].Lock()
		wake_up_cond[channel].Signal()
		wake_up_mutex[channel].Unlock()
	}

} /* end lm_data_request */

/*-------------------------------------------------------------------
 *
 * Name:        lm_seize_request
 *
 * Purpose:     Force start of transmit even if transmit queue is empty.
 *
 * Inputs:	channel	- Channel, 0 is first.
 *
 * Description:	5.4.
 *
 *		LM-SEIZE Request. The Data-link State Machine uses this primitive to request the
 *		Link Multiplexer State Machine to arrange for transmission at the next available
 *		opportunity. The Data-link State Machine uses this primitive when an
 *		acknowledgement must be made; the exact frame in which the acknowledgement
 *		is sent will be chosen when the actual time for transmission arrives.
 *
 * Implementation: Add a null frame (i.e. length of 0) to give the process a kick.
 *		The transmit thread needs to be smart enough to discard it.
 *
 *--------------------------------------------------------------------*/

func lm_seize_request(channel int) {

	var prio = TQ_PRIO_1_LO

	if channel < 0 || channel >= MAX_RADIO_CHANS || save_audio_config_p.chan_medium[channel] != MEDIUM_RADIO {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("ERROR - Request to transmit on invalid radio channel %d.\n", channel)
		dw_printf("Connected packet mode requires a radio channel.\n")
		return
	}

	var pp = ax25_new()

	tq_mutex.Lock()

	if queue_head[channel][prio] == nil {
		queue_head[channel][prio] = pp
	} else {
		var plast = queue_head[channel][prio]
		for {
			var pnext = ax25_get_nextp(plast)
			if pnext == nil {
				break
			}
			plast = pnext
		}
		ax25_set_nextp(plast, pp)
	}

	tq_mutex.Unlock()

	if xmit_thread_is_waiting[channel] {
		wake_up_mutex[channel].Lock()
		wake_up_cond[channel].Signal()
		wake_up_mutex[channel].Unlock()
	}
} /* end lm_seize_request */

/*-------------------------------------------------------------------
 *
 * Name:        tq_wait_while_empty
 *
 * Purpose:     Sleep while the transmit queue is empty rather than
 *		polling periodically.
 *
 * Inputs:	channel	- Channel, 0 is first.
 *
 * Description:	We have one transmit thread for each radio channel.
 *
 *--------------------------------------------------------------------*/

func tq_wait_while_empty(channel int) {

	Assert(channel >= 0 && channel < MAX_RADIO_CHANS)

	tq_mutex.Lock()

	var is_empty = tq_is_empty(channel)

	tq_mutex.Unlock()

	if is_empty {

		wake_up_mutex[channel].Lock()
		xmit_thread_is_waiting[channel] = true
		wake_up_cond[channel].Wait()
		xmit_thread_is_waiting[channel] = false

		wake_up_mutex[channel].Unlock()
	}

}

/*-------------------------------------------------------------------
 *
 * Name:        tq_remove
 *
 * Purpose:     Remove a packet from the head of the specified transmit queue.
 *
 * Inputs:	channel	- Channel, 0 is first.
 *
 *		prio	- Priority, use TQ_PRIO_0_HI or TQ_PRIO_1_LO.
 *
 * Returns:	Pointer to packet object.
 *		Caller should destroy it with ax25_delete when finished with it.
 *
 *--------------------------------------------------------------------*/

func tq_remove(channel int, prio int) *packet_t {

	tq_mutex.Lock()

	var result_p *packet_t

	if queue_head[channel][prio] == nil {
		result_p = nil
	} else {
		result_p = queue_head[channel][prio]
		queue_head[channel][prio] = ax25_get_nextp(result_p)
		ax25_set_nextp(result_p, nil)
	}

	tq_mutex.Unlock()

	return (result_p)

} /* end tq_remove */

/*-------------------------------------------------------------------
 *
 * Name:        tq_peek
 *
 * Purpose:     Take a peek at the next frame in the queue but don't remove it.
 *
 * Inputs:	channel	- Channel, 0 is first.
 *
 *		prio	- Priority, use TQ_PRIO_0_HI or TQ_PRIO_1_LO.
 *
 * Returns:	Pointer to packet object or nil.
 *
 *		Caller should NOT destroy it because it is still in the queue.
 *
 *--------------------------------------------------------------------*/

func tq_peek(channel int, prio int) *packet_t {

	// Just take a peek at the head.  Don't remove it.

	var result_p = queue_head[channel][prio]

	return (result_p)

} /* end tq_peek */

/*-------------------------------------------------------------------
 *
 * Name:        tq_is_empty
 *
 * Purpose:     Test if queues for specified channel are empty.
 *
 * Inputs:	channel		Channel
 *
 * Returns:	True if nothing in the queue.
 *
 *--------------------------------------------------------------------*/

func tq_is_empty(channel int) bool {

	Assert(channel >= 0 && channel < MAX_RADIO_CHANS)

	for p := 0; p < TQ_NUM_PRIO; p++ {

		if queue_head[channel][p] != nil {
			return false
		}
	}

	return true

} /* end tq_is_empty */

/*-------------------------------------------------------------------
 *
 * Name:        tq_count
 *
 * Purpose:     Return count of the number of packets (or bytes) in the specified transmit queue.
 *		This is used only for queries from client applications.
 *
 * Inputs:	channel	- Channel, 0 is first.
 *
 *		prio	- Priority, use TQ_PRIO_0_HI or TQ_PRIO_1_LO.
 *			  Specify -1 for total of both.
 *
 *		source	- If specified, count only those with this source address.
 *
 *		dest	- If specified, count only those with this destination address.
 *
 *		bytes	- If true, return number of bytes rather than packets.
 *
 * Returns:	Number of items in specified queue.
 *
 *--------------------------------------------------------------------*/

func tq_count(channel int, prio int, source string, dest string, bytes int) int {

	if prio == -1 {
		return (tq_count(channel, TQ_PRIO_0_HI, source, dest, bytes) +
			tq_count(channel, TQ_PRIO_1_LO, source, dest, bytes))
	}

	// Array bounds check.

	if channel < 0 || channel >= MAX_RADIO_CHANS || prio < 0 || prio >= TQ_NUM_PRIO {
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("INTERNAL ERROR - tq_count(%d, %d, \"%s\", \"%s\", %d)\n", channel, prio, source, dest, bytes)
		return (0)
	}

	if queue_head[channel][prio] == nil {
		return (0)
	}

	// Don't want lists being rearranged while we are traversing them.

	tq_mutex.Lock()

	var n = 0 // Result.  Number of bytes or packets.
	var pp = queue_head[channel][prio]

	for pp != nil {
		if ax25_get_num_addr(pp) >= AX25_MIN_ADDRS {
			// Consider only real packets, not the null frames
			// used as a seize request kicker.

			var count_it = true

			if source != "" {
				var frame_source = ax25_get_addr_with_ssid(pp, AX25_SOURCE)
				if source != frame_source {
					count_it = false
				}
			}
			if count_it && dest != "" {
				var frame_dest = ax25_get_addr_with_ssid(pp, AX25_DESTINATION)
				if dest != frame_dest {
					count_it = false
				}
			}

			if count_it {
				if bytes > 0 {
					n += ax25_get_frame_len(pp)
				} else {
					n++
				}
			}
		}
		pp = ax25_get_nextp(pp)
	}

	tq_mutex.Unlock()

	return (n)
} /* end tq_count */
