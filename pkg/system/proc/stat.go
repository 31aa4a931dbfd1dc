package proc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/prometheus/procfs"
)

// stat is the part of /proc/<pid>/stat the source uses.
type stat struct {
	name      string
	state     byte
	ppid      int64
	utime     uint64
	stime     uint64
	starttime uint64 // jiffies after boot
	vsize     uint64 // bytes
	rss       int64  // pages
}

// parseStat decodes one stat line.
//
// comm (2nd field) is in parens and may itself contain spaces and parens, so
// the numeric fields start after the last ") ".
func parseStat(b []byte) (stat, error) {
	line := strings.TrimSpace(string(b))
	open := strings.IndexByte(line, '(')
	i := strings.LastIndex(line, ") ")
	if open < 0 || i < open {
		return stat{}, ErrNoStat
	}
	fields := strings.Fields(line[i+2:])
	// starttime, vsize and rss are fields 22..24 overall, 19..21 here
	if len(fields) < 22 {
		return stat{}, ErrShortStat
	}
	if len(fields[0]) != 1 {
		return stat{}, fmt.Errorf("%w: state %q", ErrBadField, fields[0])
	}

	var (
		s   = stat{name: line[open+1 : i], state: fields[0][0]}
		err error
	)
	u64 := func(idx int) uint64 {
		if err != nil {
			return 0
		}
		var v uint64
		v, err = strconv.ParseUint(fields[idx], 10, 64)
		if err != nil {
			err = fmt.Errorf("%w: field %d: %w", ErrBadField, idx+3, err)
		}
		return v
	}
	i64 := func(idx int) int64 {
		if err != nil {
			return 0
		}
		var v int64
		v, err = strconv.ParseInt(fields[idx], 10, 64)
		if err != nil {
			err = fmt.Errorf("%w: field %d: %w", ErrBadField, idx+3, err)
		}
		return v
	}

	s.ppid = i64(1)
	s.utime = u64(11)
	s.stime = u64(12)
	s.starttime = u64(19)
	s.vsize = u64(20)
	s.rss = i64(21)
	if err != nil {
		return stat{}, err
	}
	return s, nil
}

// ids holds the real and effective ids of a process.
type ids struct {
	uid, euid uint32
	gid, egid uint32
}

// statusIDs converts the Uid and Gid lines of a parsed status file. Each
// lists real, effective, saved and filesystem ids; procfs leaves them empty
// when the line is missing.
func statusIDs(st procfs.ProcStatus) (ids, error) {
	if st.UIDs[0] == "" || st.GIDs[0] == "" {
		return ids{}, ErrNoIDs
	}
	var (
		out ids
		err error
	)
	id := func(key, v string) uint32 {
		if err != nil {
			return 0
		}
		var n uint64
		n, err = strconv.ParseUint(v, 10, 32)
		if err != nil {
			err = fmt.Errorf("%w: %s: %w", ErrBadField, key, err)
		}
		return uint32(n)
	}
	out.uid = id("Uid", st.UIDs[0])
	out.euid = id("Uid", st.UIDs[1])
	out.gid = id("Gid", st.GIDs[0])
	out.egid = id("Gid", st.GIDs[1])
	if err != nil {
		return ids{}, err
	}
	return out, nil
}
