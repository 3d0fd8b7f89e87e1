package direwolf

//
//    This file is part of Dire Wolf, an amateur radio packet TNC.
//
//    Copyright (C) 2014, 2015, 2016  John Langner, WB2OSZ
//
//    This program is free software: you can redistribute it and/or modify
//    it under the terms of the GNU General Public License as published by
//    the Free Software Foundation, either version 2 of the License, or
//    (at your option) any later version.
//
//    This program is distributed in the hope that it will be useful,
//    but WITHOUT ANY WARRANTY; without even the implied warranty of
//    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//    GNU General Public License for more details.
//
//    You should have received a copy of the GNU General Public License
//    along with this program.  If not, see <http://www.gnu.org/licenses/>.
//

/*------------------------------------------------------------------
 *
 * Purpose:   	Process received frames and other events, one at a time.
 *
 * Description:	Each KISS port has its own listen thread.  Received
 *		frames are appended to a single queue with dlq_rec_frame,
 *		along with requests from client applications and channel
 *		status reports.
 *
 *		recv_process waits for something to show up in the queue
 *		and feeds it to the data link state machine.  Since there
 *		is only one of these threads, the state machine processing
 *		does not need to be reentrant.
 *
 *---------------------------------------------------------------*/

/*------------------------------------------------------------------
 *
 * Name:        app_process_rec_packet
 *
 * Purpose:     Print a received frame in the standard monitoring format
 *		and distribute it to interested client applications.
 *
 * Inputs:	channel	- Radio channel it was received on.
 *
 *		pp	- The packet.  Caller retains ownership.
 *
 *----------------------------------------------------------------*/

func app_process_rec_packet(channel int, pp *packet_t) {

	var ts = timestampPrefix()

	var pinfo = ax25_get_info(pp)

	text_color_set(DW_COLOR_REC)
	dw_printf("[%d%s] ", channel, ts)
	dw_printf("%s", ax25_format_addrs(pp)) /* stations followed by : */

	/* Demystify non-UI.  Same format as for transmitted frames. */

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

	log_write(channel, "R", pp)

	/* Send to AGW client applications. */

	server_send_rec_packet(channel, pp, ax25_get_frame_data(pp))

} /* end app_process_rec_packet */

/*------------------------------------------------------------------
 *
 * Name:        recv_process
 *
 * Purpose:     Main processing loop.  Does not return.
 *
 * Description:	Wait for something to show up in the queue and
 *		dispatch it to the data link state machine.  When
 *		nothing arrives before the next timer expiry, let
 *		the state machine handle its timers.
 *
 *----------------------------------------------------------------*/

func recv_process() {
	for {
		var timeout_value = ax25_link_get_next_timer_expiry()

		var timed_out = dlq_wait_while_empty(timeout_value)

		if timed_out {
			dl_timer_expiry()
		} else {
			var pitem = dlq_remove()

			if pitem != nil {
				switch pitem._type {
				case DLQ_REC_FRAME:
					/*
					 * For all frames:
					 *	- Print in standard monitoring format.
					 *	- Send to AGW client applications in raw mode.
					 */

					app_process_rec_packet(pitem._chan, pitem.pp)

					/*
					 * Link processing.
					 */
					lm_data_indication(pitem)
				case DLQ_CONNECT_REQUEST:
					dl_connect_request(pitem)
				case DLQ_DISCONNECT_REQUEST:
					dl_disconnect_request(pitem)
				case DLQ_XMIT_DATA_REQUEST:
					dl_data_request(pitem)
				case DLQ_REGISTER_CALLSIGN:
					dl_register_callsign(pitem)
				case DLQ_UNREGISTER_CALLSIGN:
					dl_unregister_callsign(pitem)
				case DLQ_OUTSTANDING_FRAMES_REQUEST:
					dl_outstanding_frames_request(pitem)
				case DLQ_CHANNEL_BUSY:
					lm_channel_busy(pitem)
				case DLQ_SEIZE_CONFIRM:
					lm_seize_confirm(pitem)
				case DLQ_CLIENT_CLEANUP:
					dl_client_cleanup(pitem)
				}

				dlq_delete(pitem)
			}
		}
	}
}
