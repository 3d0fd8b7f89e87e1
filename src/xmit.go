package direwolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Transmit queued up packets when channel is clear.
 *
 * Description:	Producers of packets to be transmitted call tq_append or
 *		lm_data_request and then go merrily on their way, unconcerned
 *		about when the packet might actually get transmitted.
 *
 *		This thread waits until the channel is clear and then removes
 *		packets from the queue and sends them to the KISS port
 *		serving the radio channel.
 *
 * Usage:	(1) The main application calls xmit_init.
 *
 *			This will initialize the transmit packet queue
 *			and create a thread to empty the queue when
 *			the channel is clear.
 *
 *		(2) The application queues up packets by calling tq_append
 *			or lm_data_request.
 *
 *		(3) xmit_thread removes packets from the queue and transmits
 *			them when other signals are not being heard.
 *
 *---------------------------------------------------------------*/

import (
	"math/rand"
	"time"

	"github.com/lestrrat-go/strftime"
)

/*
 * Parameters for transmission.
 * Each channel can have different timing values.
 *
 * These are initialized once at application startup time
 * and some can be changed later by commands from connected applications.
 */

var xmit_slottime [MAX_RADIO_CHANS]int /* Slot time in 10 mS units for persistence algorithm. */

var xmit_persist [MAX_RADIO_CHANS]int /* Sets probability for transmitting after each */
/* slot time delay.  Transmit if a random number */
/* in range of 0 - 255 <= persist value.  */
/* Otherwise wait another slot time and try again. */

var xmit_txdelay [MAX_RADIO_CHANS]int /* After turning on the transmitter, */
/* the TNC sends "flags" for txdelay * 10 mS. */

var xmit_txtail [MAX_RADIO_CHANS]int /* Amount of time the TNC keeps transmitting after */
/* we are done sending the data.  Again 10 mS units. */

var xmit_fulldup [MAX_RADIO_CHANS]int /* Full duplex if non-zero. */

var xmit_bits_per_sec [MAX_RADIO_CHANS]int /* Data transmission rate. */
/* Often called baud rate which is equivalent for */
/* 1200 & 9600 cases but could be different with other */
/* modulation techniques. */

var g_debug_xmit_packet int /* print packet in hexadecimal form for debugging. */

func BITS_TO_MS(b int, ch int) int {
	return b * 1000 / xmit_bits_per_sec[ch]
}

func MS_TO_BITS(ms int, ch int) int {
	return ms * xmit_bits_per_sec[ch] / 1000
}

/*-------------------------------------------------------------------
 *
 * Name:        xmit_init
 *
 * Purpose:     Initialize the transmit process.
 *
 * Inputs:	p_modem		- Structure with channel and timing parameters.
 *
 *		debug_xmit_packet - Print hex dump of transmitted frames.
 *
 * Outputs:	Remember required information for future use.
 *
 * Description:	Initialize the queue to be empty and set up other
 *		mechanisms for sharing it between different threads.
 *
 *		Start up xmit_thread(s) to actually send the packets
 *		at the appropriate time.
 *
 *--------------------------------------------------------------------*/

func xmit_init(p_modem *audio_s, debug_xmit_packet int) {

	save_audio_config_p = p_modem

	g_debug_xmit_packet = debug_xmit_packet

	/*
	 * Push to Talk (PTT) state tracking.
	 */
	ptt_init(p_modem)

	/*
	 * Save parameters for later use.
	 */

	for j := 0; j < MAX_RADIO_CHANS; j++ {
		xmit_bits_per_sec[j] = p_modem.achan[j].baud
		xmit_slottime[j] = p_modem.achan[j].slottime
		xmit_persist[j] = p_modem.achan[j].persist
		xmit_txdelay[j] = p_modem.achan[j].txdelay
		xmit_txtail[j] = p_modem.achan[j].txtail
		xmit_fulldup[j] = p_modem.achan[j].fulldup

		if xmit_bits_per_sec[j] <= 0 {
			xmit_bits_per_sec[j] = DEFAULT_BAUD
		}
	}

	tq_init(p_modem)

	for j := 0; j < MAX_RADIO_CHANS; j++ {
		if p_modem.chan_medium[j] == MEDIUM_RADIO {
			go xmit_thread(j)
		}
	}

}

/*-------------------------------------------------------------------
 *
 * Name:        xmit_set_txdelay
 *		xmit_set_persist
 *		xmit_set_slottime
 *		xmit_set_txtail
 *		xmit_set_fulldup
 *
 * Purpose:     The KISS protocol, and maybe others, can specify
 *		transmit timing parameters.  If the application
 *		specifies these, they will override what was read
 *		from the configuration file.
 *
 * Inputs:	channel	- should be 0 or 1.
 *
 *		value	- time values are in 10 mSec units.
 *
 * Bugs:	No validity checking other than array subscript out of bounds.
 *
 *--------------------------------------------------------------------*/

func xmit_set_txdelay(channel int, value int) {
	if channel >= 0 && channel < MAX_RADIO_CHANS {
		xmit_txdelay[channel] = value
	}
}

func xmit_set_persist(channel int, value int) {
	if channel >= 0 && channel < MAX_RADIO_CHANS {
		xmit_persist[channel] = value
	}
}

func xmit_set_slottime(channel int, value int) {
	if channel >= 0 && channel < MAX_RADIO_CHANS {
		xmit_slottime[channel] = value
	}
}

func xmit_set_txtail(channel int, value int) {
	if channel >= 0 && channel < MAX_RADIO_CHANS {
		xmit_txtail[channel] = value
	}
}

func xmit_set_fulldup(channel int, value int) {
	if channel >= 0 && channel < MAX_RADIO_CHANS {
		xmit_fulldup[channel] = value
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        frame_flavor
 *
 * Purpose:     Separate frames into different flavors so we can decide
 *		which can be bundled into a single transmission and which
 *		should be sent separately.
 *
 * Inputs:	pp	- Packet object.
 *
 * Returns:	Flavor, one of:
 *
 *		FLAVOR_UI_DIGI	- UI frame being digipeated.
 *		FLAVOR_UI_NEW	- UI frame originated here.
 *		FLAVOR_OTHER	- Anything left over, i.e. connected mode.
 *
 *--------------------------------------------------------------------*/

type flavor_t int

const (
	FLAVOR_UI_NEW flavor_t = iota
	FLAVOR_UI_DIGI
	FLAVOR_OTHER
)

func frame_flavor(pp *packet_t) flavor_t {

	if ax25_frame_type_only(pp) == frame_type_U_UI {

		/* Is there at least one digipeater AND has first one been used? */
		/* I could be the first in the list or later.  Doesn't matter. */

		if ax25_get_num_repeaters(pp) >= 1 && ax25_get_h(pp, AX25_REPEATER_1) > 0 {
			return (FLAVOR_UI_DIGI)
		}

		return (FLAVOR_UI_NEW)
	}

	return (FLAVOR_OTHER)

} /* end frame_flavor */

/*-------------------------------------------------------------------
 *
 * Name:        xmit_thread
 *
 * Purpose:     Process transmit queue for one channel.
 *
 * Inputs:	transmit packet queue.
 *
 * Description:	We have different timing rules for different types of
 *		packets so they are put into different queues.
 *
 *		High Priority -
 *
 *			Packets which are being digipeated go out first.
 *			AX.25 connected mode also has a couple cases
 *			where "expedited" frames are sent.
 *
 *		Low Priority -
 *
 *			Other packets are sent after a random wait time
 *			(determined by PERSIST & SLOTTIME) to help avoid
 *			collisions.
 *
 *		The rule is that UI digipeated frames are sent separately.
 *		The rest can be bundled.
 *
 *--------------------------------------------------------------------*/

func xmit_thread(channel int) {

	for {
		tq_wait_while_empty(channel)

		for tq_peek(channel, TQ_PRIO_0_HI) != nil || tq_peek(channel, TQ_PRIO_1_LO) != nil {

			/*
			 * Wait for the channel to be clear.
			 * If there is something in the high priority queue, begin transmitting immediately.
			 * Otherwise, wait a random amount of time, in hopes of minimizing collisions.
			 */
			var ok = wait_for_clear_channel(channel, xmit_slottime[channel], xmit_persist[channel], xmit_fulldup[channel])

			var prio = TQ_PRIO_1_LO
			var pp = tq_remove(channel, TQ_PRIO_0_HI)
			if pp != nil {
				prio = TQ_PRIO_0_HI
			} else {
				pp = tq_remove(channel, TQ_PRIO_1_LO)
			}

			// Shouldn't have nil here but be careful.

			if pp != nil {
				if ok {
					switch frame_flavor(pp) {

					case FLAVOR_UI_DIGI:
						xmit_ax25_frames(channel, prio, pp, 1) /* 1 means don't bundle */
						// It is generally agreed that digipeaters should send
						// only one frame at a time rather than bundling multiple
						// frames into a single transmission.

					default:
						xmit_ax25_frames(channel, prio, pp, 256)
					}
				} else {
					/*
					 * Timeout waiting for clear channel.
					 * Discard the packet.
					 * Display with ERROR color rather than XMIT color.
					 */
					text_color_set(DW_COLOR_ERROR)
					dw_printf("Waited too long for clear channel.  Discarding packet below.\n")

					text_color_set(DW_COLOR_INFO)
					dw_printf("[%d%c] ", channel, priorityToRune(prio))
					dw_printf("%s", ax25_format_addrs(pp))
					ax25_safe_print(ax25_get_info(pp), false)
					dw_printf("\n")
					ax25_delete(pp)
				} /* wait for clear channel error. */
			} /* Have pp */
		} /* while queue not empty */
	} /* while 1 */
} /* end xmit_thread */

func priorityToRune(prio int) rune {
	if prio == TQ_PRIO_0_HI {
		return 'H'
	} else {
		return 'L'
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        xmit_ax25_frames
 *
 * Purpose:     After we have a clear channel, and possibly waited a random time,
 *		we transmit one or more frames.
 *
 * Inputs:	channel	- Channel number.
 *
 *		prio	- Priority of the first frame.
 *			  Subsequent frames could be different.
 *
 *		pp	- Packet object pointer.
 *			  It will be deleted so caller should not try
 *			  to reference it after this.
 *
 *		max_bundle - Max number of frames to bundle into one transmission.
 *
 * Description:	Turn on transmitter.
 *		Send the first packet, given by pp.
 *		Possibly send more packets from either queue.
 *		Turn off transmitter.
 *
 *		The actual keying and flag fill is done by the TNC on the
 *		other end of the KISS port, using its own TXDELAY / TXTAIL
 *		settings.  We model the timing here so the transmitter-on
 *		and transmitter-off events, which the data link state
 *		machine uses for pausing timers, are a reasonable
 *		approximation of what is happening on the air.
 *
 *		We could theoretically have a window size up to 127.
 *		If another section pumps out that many quickly we shouldn't
 *		break it up here.  Empty out both queues with some exceptions.
 *
 *		UI digipeated frames should have their own separate transmissions.
 *		Everything else can be bundled together.
 *		Different priorities can share a single transmission.
 *		Once we have control of the channel, we might as well keep going.
 *		[High] Priority frames will always go to head of the line.
 *
 *--------------------------------------------------------------------*/

func xmit_ax25_frames(channel int, prio int, pp *packet_t, max_bundle int) {
	/*
	 * These are for timing of a transmission.
	 */
	var time_ptt = time.Now()

	/*
	 * Turn on transmitter.
	 */

	ptt_set(OCTYPE_PTT, channel, 1)

	// Inform data link state machine that we are now transmitting.

	dlq_seize_confirm(channel) // C4.2.  "This primitive indicates, to the Data-link State
	// machine, that the transmission opportunity has arrived."

	/* Total number of bits in transmission including all flags. */

	var num_bits = MS_TO_BITS(xmit_txdelay[channel]*10, channel)

	SLEEP_MS(10) // Give data link state machine a chance to
	// to stuff more frames into the transmit queue,
	// in response to dlq_seize_confirm, so
	// we don't run off the end too soon.

	var nb int
	var numframe = 0 /* Number of frames sent during this transmission. */

	/*
	 * Transmit the frame.
	 */

	nb = send_one_frame(channel, prio, pp)

	num_bits += nb
	if nb > 0 {
		numframe++
	}
	ax25_delete(pp)

	/*
	 * See if we can bundle additional frames into this transmission.
	 */

	var done = false
	for numframe < max_bundle && !done {

		/*
		 * Peek at what is available.
		 * Don't remove from queue yet because it might not be eligible.
		 */
		prio = TQ_PRIO_1_LO
		pp = tq_peek(channel, TQ_PRIO_0_HI)
		if pp != nil {
			prio = TQ_PRIO_0_HI
		} else {
			pp = tq_peek(channel, TQ_PRIO_1_LO)
		}

		if pp != nil {

			switch frame_flavor(pp) {

			default:
				done = true // not eligible for bundling.

			case FLAVOR_UI_NEW, FLAVOR_OTHER:

				pp = tq_remove(channel, prio)

				nb = send_one_frame(channel, prio, pp)

				num_bits += nb
				if nb > 0 {
					numframe++
				}
				ax25_delete(pp)
			}
		} else {
			done = true
		}
	}

	num_bits += MS_TO_BITS(xmit_txtail[channel]*10, channel)

	/*
	 * The KISS port accepted the frames immediately but the TNC is
	 * still wiggling bits out over the air.
	 *
	 * Calculate how long the frame(s) should take in milliseconds
	 * and keep PTT state on until roughly when the TNC should be done.
	 */

	var durationMS = BITS_TO_MS(num_bits, channel)

	var already = time.Since(time_ptt)
	var wait_more = time.Duration(durationMS)*time.Millisecond - already

	if wait_more > 0 {
		SLEEP_MS(int(wait_more.Milliseconds()))
	}

	/*
	 * Turn off transmitter.
	 */

	ptt_set(OCTYPE_PTT, channel, 0)
} /* end xmit_ax25_frames */

/*-------------------------------------------------------------------
 *
 * Name:        send_one_frame
 *
 * Purpose:     Send one AX.25 frame.
 *
 * Inputs:	c	- Channel number.
 *
 *		p	- Priority.
 *
 *		pp	- Packet object pointer.  Caller will delete it.
 *
 * Returns:	Number of bits transmitted.
 *
 * Description:	Caller is responsible for activating PTT, deciding
 *		how many frames can be in one transmission,
 *		deactivating PTT.
 *
 *--------------------------------------------------------------------*/

func send_one_frame(c int, p int, pp *packet_t) int {

	if ax25_is_null_frame(pp) {

		// Issue 132 - We could end up in a situation where:
		// Transmitter is already on.
		// Application wants to send a frame.
		// dl_seize_request turns into this null frame.
		// It was being ignored here so the data got stuck in the queue.
		// I think the solution is to send back a seize confirm here.
		// It shouldn't hurt if we send it redundantly.

		dlq_seize_confirm(c) // C4.2.  "This primitive indicates, to the Data-link State
		// machine, that the transmission opportunity has arrived."

		SLEEP_MS(10) // Give data link state machine a chance to
		// to stuff more frames into the transmit queue,
		// in response to dlq_seize_confirm, so
		// we don't run off the end too soon.

		return (0)
	}

	var ts = timestampPrefix()

	var pinfo = ax25_get_info(pp)

	text_color_set(DW_COLOR_XMIT)
	dw_printf("[%d%c%s] ", c, priorityToRune(p), ts)
	dw_printf("%s", ax25_format_addrs(pp)) /* stations followed by : */

	/* Demystify non-APRS.  Use same format for received frames. */

	if ax25_frame_type_only(pp) != frame_type_U_UI {
		var _, desc, _, _, _, ftype = ax25_frame_type(pp)

		dw_printf("(%s)", desc)

		if ftype == frame_type_U_XID {
			var _, info2text, _ = xid_parse(pinfo)
			dw_printf(" %s\n", info2text)
		} else {
			ax25_safe_print(pinfo, true)
			dw_printf("\n")
		}
	} else {
		ax25_safe_print(pinfo, false)
		dw_printf("\n")
	}

	/* Optional hex dump of packet. */

	if g_debug_xmit_packet > 0 {

		text_color_set(DW_COLOR_DEBUG)
		dw_printf("------\n")
		var fdata = ax25_get_frame_data(pp)
		for n := 0; n < len(fdata); n++ {
			dw_printf(" %02x", fdata[n])
			if (n+1)%16 == 0 {
				dw_printf("\n")
			}
		}
		dw_printf("\n------\n")
	}

	log_write(c, "T", pp)

	/*
	 * Hand the frame to the KISS port serving this channel.
	 */
	var nb = kiss_port_send_frame(c, pp)

	// Optionally send confirmation to AGW client app if monitoring enabled.

	server_send_monitored(c, pp, 1)

	return (nb)
} /* end send_one_frame */

func timestampPrefix() string {
	if len(save_audio_config_p.timestamp_format) > 0 {
		var formattedTime, _ = strftime.Format(save_audio_config_p.timestamp_format, time.Now())
		return " " + formattedTime // space after channel.
	}

	return ""
}

/*-------------------------------------------------------------------
 *
 * Name:        wait_for_clear_channel
 *
 * Purpose:     Wait for the radio channel to be clear and any
 *		additional time for collision avoidance.
 *
 * Inputs:	channel	-	Radio channel number.
 *
 *		slottime - 	Amount of time to wait for each iteration
 *				of the waiting algorithm.  10 mSec units.
 *
 *		persist -	Probability of transmitting.
 *
 *		fulldup -	Full duplex.  Just start sending immediately.
 *
 * Returns:	True for OK.  False for timeout.
 *
 * Description:	Channel activity comes from the DCD indications
 *		reported by the TNC serving the channel.
 *
 * Transmit delay algorithm:
 *
 *		Wait for channel to be clear.
 *		If anything in high priority queue, bail out of the following.
 *
 *		Wait slottime * 10 milliseconds.
 *		Generate an 8 bit random number in range of 0 - 255.
 *		If random number <= persist value, return.
 *		Otherwise repeat.
 *
 *--------------------------------------------------------------------*/

/* Give up if we can't get a clear channel in a minute. */
/* Might need to revisit some day for connected mode file transfers. */

const WAIT_TIMEOUT_MS = 60 * 1000
const WAIT_CHECK_EVERY_MS = 10

func wait_for_clear_channel(channel int, slottime int, persist int, fulldup int) bool {

	/*
	 * For full duplex we skip the channel busy check and random wait.
	 */
	var n = 0
	if fulldup == 0 {

	start_over_again:

		for ptt_get(OCTYPE_DCD, channel) > 0 {
			SLEEP_MS(WAIT_CHECK_EVERY_MS)
			n++
			if n > (WAIT_TIMEOUT_MS / WAIT_CHECK_EVERY_MS) {
				return false
			}
		}

		/*
		 * Wait random time.
		 * Proceed to transmit sooner if anything shows up in high priority queue.
		 */
		for tq_peek(channel, TQ_PRIO_0_HI) == nil {
			SLEEP_MS(slottime * 10)

			if ptt_get(OCTYPE_DCD, channel) > 0 {
				goto start_over_again
			}

			var r = rand.Int() & 0xff
			if r <= persist {
				break
			}
		}
	}

	return true

} /* end wait_for_clear_channel */
