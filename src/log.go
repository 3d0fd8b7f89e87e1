package direwolf

/*------------------------------------------------------------------
 *
 * Purpose:	Save sent and received frames to a log file.
 *
 * Description: Rather than saving the raw, sometimes rather cryptic and
 *		unreadable, format, write separated properties into
 *		CSV format for easy reading and later processing.
 *
 *		There are two alternatives here.
 *
 *		logfile		Specify full file path.
 *
 *		logdir		Daily names will be created here.
 *
 *		Use one or the other but not both.
 *
 *------------------------------------------------------------------*/

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lestrrat-go/strftime"
)

/*------------------------------------------------------------------
 *
 * Function:	log_init
 *
 * Purpose:	Initialization at start of application.
 *
 * Inputs:	daily_names	- True if daily names should be generated.
 *				  In this case path is a directory.
 *				  When false, path would be the file name.
 *
 *		path		- Log file name or just directory.
 *				  Use "." for current directory.
 *				  Empty string disables feature.
 *
 * Global Out:	g_daily_names	- True if daily names should be generated.
 *
 *		g_log_path 	- Save directory or full name here for later use.
 *
 *		g_log_fp	- File pointer for writing.
 *				  Note that file is kept open.
 *				  We don't open/close for every new item.
 *
 *		g_open_fname	- Name of currently open file.
 *				  Applicable only when g_daily_names is true.
 *
 *------------------------------------------------------------------*/

var g_daily_names bool
var g_log_path string
var g_log_fp *os.File
var g_open_fname string

func log_init(daily_names bool, path string) {
	g_daily_names = daily_names
	g_log_path = ""
	g_log_fp = nil
	g_open_fname = ""

	if len(path) == 0 {
		return
	}

	if g_daily_names {
		// Automatic daily file names.
		var stat, statErr = os.Stat(path)

		if statErr == nil {
			// Exists, but is it a directory?
			if stat.IsDir() {
				// Specified directory exists.
				g_log_path = path
			} else {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("Log file location \"%s\" is not a directory.\n", path)
				dw_printf("Using current working directory \".\" instead.\n")
				g_log_path = "."
			}
		} else {
			// Doesn't exist.  Try to create it.
			// parent directory must exist.
			// We don't create multiple levels like "mkdir -p"
			var mkdirErr = os.Mkdir(path, 0755)
			if mkdirErr == nil {
				// Success.
				text_color_set(DW_COLOR_INFO)
				dw_printf("Log file location \"%s\" has been created.\n", path)
				g_log_path = path
			} else {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("Failed to create log file location \"%s\".\n", path)
				dw_printf("%s\n", mkdirErr)
				dw_printf("Using current working directory \".\" instead.\n")
				g_log_path = "."
			}
		}
	} else {
		// Single file.
		// Typically logrotate would be used to keep size under control.

		text_color_set(DW_COLOR_INFO)
		dw_printf("Log file is \"%s\"\n", path)
		g_log_path = path
	}
} /* end log_init */

/*------------------------------------------------------------------
 *
 * Function:	log_write
 *
 * Purpose:	Save information to log file.
 *
 * Inputs:	chan	- Radio channel.
 *
 *		dir	- "R" for received, "T" for transmitted.
 *
 *		pp	- Packet object.
 *
 *------------------------------------------------------------------*/

func log_write(channel int, dir string, pp *packet_t) {
	if len(g_log_path) == 0 {
		return
	}

	var now = time.Now().UTC()

	if g_daily_names {
		// Automatic daily file names.

		// Generate the file name from current date, UTC.

		var fname, ftimeErr = strftime.Format("%Y-%m-%d.log", now)
		if ftimeErr != nil {
			return
		}

		// Close current file if name has changed

		if g_log_fp != nil && fname != g_open_fname {
			log_term()
		}

		// Open for append if not already open.

		if g_log_fp == nil {
			var full_path = filepath.Join(g_log_path, fname)

			// See if file already exists and not empty.
			// This is used later to write a header if it did not exist already.

			var _, statErr = os.Stat(full_path)
			var already_there = statErr == nil

			text_color_set(DW_COLOR_INFO)
			dw_printf("Opening log file \"%s\".\n", fname)

			var f, openErr = os.OpenFile(full_path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0644)

			if openErr == nil {
				g_log_fp = f
				g_open_fname = fname
			} else {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("Can't open log file \"%s\" for write.\n", full_path)
				dw_printf("%s\n", openErr)
				g_open_fname = ""
				return
			}

			// Write a header suitable for importing into a spreadsheet
			// only if this will be the first line.

			if !already_there {
				fmt.Fprintf(g_log_fp, "chan,utime,isotime,dir,source,dest,type,pid,length\n")
			}
		}
	} else {
		// Single file.

		// Open for append if not already open.

		if g_log_fp == nil {
			// See if file already exists and not empty.
			// This is used later to write a header if it did not exist already.

			var _, statErr = os.Stat(g_log_path)
			var already_there = statErr == nil

			text_color_set(DW_COLOR_INFO)
			dw_printf("Opening log file \"%s\"\n", g_log_path)

			var f, openErr = os.OpenFile(g_log_path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0644)

			if openErr == nil {
				g_log_fp = f
			} else {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("Can't open log file \"%s\" for write.\n", g_log_path)
				dw_printf("%s\n", openErr)
				g_log_path = ""
				return
			}

			// Write a header suitable for importing into a spreadsheet
			// only if this will be the first line.

			if !already_there {
				fmt.Fprintf(g_log_fp, "chan,utime,isotime,dir,source,dest,type,pid,length\n")
			}
		}
	}

	// Add line to file if it is now open.

	if g_log_fp != nil {
		var itime = now.Format("2006-01-02T15:04:05Z")

		var source, dest string
		if ax25_get_num_addr(pp) >= AX25_MIN_ADDRS {
			source = ax25_get_addr_with_ssid(pp, AX25_SOURCE)
			dest = ax25_get_addr_with_ssid(pp, AX25_DESTINATION)
		}

		var _, desc, _, _, _, _ = ax25_frame_type(pp)

		var spid = ""
		var pid = ax25_get_pid(pp)
		if pid >= 0 {
			spid = fmt.Sprintf("%02X", pid)
		}

		var w = csv.NewWriter(g_log_fp)
		w.Write([]string{
			strconv.Itoa(channel), strconv.Itoa(int(now.Unix())), itime,
			dir, source, dest, desc, spid,
			strconv.Itoa(len(ax25_get_info(pp))),
		})
		w.Flush()

		var writeError = w.Error()
		if writeError != nil {
			dw_printf("CSV write error: %s", writeError)
		}
	}
} /* end log_write */

/*------------------------------------------------------------------
 *
 * Function:	log_term
 *
 * Purpose:	Close any open log file.
 *		Called when exiting or when date changes.
 *
 *------------------------------------------------------------------*/

func log_term() {
	if g_log_fp != nil {
		text_color_set(DW_COLOR_INFO)

		if g_daily_names {
			dw_printf("Closing log file \"%s\".\n", g_open_fname)
		} else {
			dw_printf("Closing log file \"%s\".\n", g_log_path)
		}

		g_log_fp.Close()

		g_log_fp = nil
		g_open_fname = ""
	}
} /* end log_term */
