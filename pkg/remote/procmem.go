package remote

import (
	"fmt"
	"os"

	"github.com/tklauser/go-sysconf"
	"golang.org/x/sys/unix"
)

// ProcessMemory reads another process's address space through
// /proc/<pid>/mem. It satisfies Memory for targets the caller cannot map
// locally.
type ProcessMemory struct {
	f        *os.File
	pagesize uint64
}

func OpenProcessMemory(pid int) (*ProcessMemory, error) {
	path := fmt.Sprintf("/proc/%d/mem", pid)
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	pagesize, err := sysconf.Sysconf(sysconf.SC_PAGE_SIZE)
	if err != nil || pagesize <= 0 {
		pagesize = 4096
	}
	return &ProcessMemory{f: f, pagesize: uint64(pagesize)}, nil
}

// ReadAt reads in page-bounded chunks so a single unmapped page fails that
// page's pread instead of poisoning the whole request.
func (m *ProcessMemory) ReadAt(b []byte, addr uint64) (int, error) {
	var total int
	for total < len(b) {
		cur := addr + uint64(total)
		chunk := len(b) - total
		if room := m.pagesize - cur%m.pagesize; uint64(chunk) > room {
			chunk = int(room)
		}
		n, err := unix.Pread(int(m.f.Fd()), b[total:total+chunk], int64(cur))
		if n > 0 {
			total += n
		}
		if err != nil {
			return total, fmt.Errorf("pread %d bytes at %#x: %w", chunk, cur, err)
		}
		if n == 0 {
			return total, fmt.Errorf("pread at %#x: no data", cur)
		}
	}
	return total, nil
}

func (m *ProcessMemory) Close() error {
	return m.f.Close()
}
