// Package scheme implements the uniform provider contract (§4.5), the
// packet transport and server loop that carries it across a duplex
// byte pipe (§4.6), and the handle-id allocator providers use for
// their handle tables.
package scheme

import (
	"bytes"
	"fmt"
	"io"

	"github.com/redoxfs/redoxfs/internal/diag"
	"github.com/redoxfs/redoxfs/internal/resource"
)

// Provider is the fixed operation set a scheme exposes over opaque
// handle ids (§4.5). Implementations own their own handle -> Resource
// table; Serve dispatches packets into these methods and never touches
// a Resource directly.
type Provider interface {
	Open(path string, flags, mode uint64) (handle uint64, errno Errno)
	Unlink(path string) Errno
	Mkdir(path string, mode uint64) Errno
	Read(handle uint64, buf []byte) (n int, errno Errno)
	Write(handle uint64, buf []byte) (n int, errno Errno)
	Seek(handle uint64, offset int64, whence resource.Whence) (pos int64, errno Errno)
	Sync(handle uint64) Errno
	Truncate(handle uint64, size int64) Errno
	Close(handle uint64) Errno
}

// Serve runs a provider's server loop over conn (§4.6): read exactly
// one packet, dispatch on op, write the packet back. conn additionally
// carries each op's data payload immediately around the header (see
// Packet's doc comment) since this transport has no shared address
// space for the original "pointer" arguments. A read error other than
// io.EOF, or any short read, is fatal and returned to the caller; EOF
// ends the loop cleanly (the client closed its end).
func Serve(conn io.ReadWriter, p Provider) error {
	for {
		pkt, err := ReadPacket(conn)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("scheme: fatal packet read: %w", err)
		}

		// Reply data is held back so it goes out after the reply header.
		var reply bytes.Buffer
		rw := struct {
			io.Reader
			io.Writer
		}{conn, &reply}
		if err := dispatch(rw, &pkt, p); err != nil {
			return fmt.Errorf("scheme: fatal payload I/O on %s: %w", pkt.Op, err)
		}

		if err := WritePacket(conn, pkt); err != nil {
			return fmt.Errorf("scheme: fatal packet write: %w", err)
		}
		if _, err := reply.WriteTo(conn); err != nil {
			return fmt.Errorf("scheme: fatal payload I/O on %s: %w", pkt.Op, err)
		}
	}
}

// dispatch executes one packet's operation against p, reading or
// writing any accompanying data payload from/to conn as the op
// requires, and fills in pkt.Result. Per-op failures are encoded into
// Result and never stop the loop (§7); only a payload I/O error (a
// torn duplex pipe) is propagated as fatal.
func dispatch(conn io.ReadWriter, pkt *Packet, p Provider) error {
	switch pkt.Op {
	case OpOpen:
		path, err := readPath(conn, pkt.ArgA)
		if err != nil {
			return err
		}
		handle, errno := p.Open(path, pkt.ArgB, pkt.ArgC)
		setResult(pkt, int64(handle), errno)

	case OpUnlink:
		path, err := readPath(conn, pkt.ArgA)
		if err != nil {
			return err
		}
		setResult(pkt, 0, p.Unlink(path))

	case OpMkdir:
		path, err := readPath(conn, pkt.ArgA)
		if err != nil {
			return err
		}
		setResult(pkt, 0, p.Mkdir(path, pkt.ArgB))

	case OpRead:
		buf := make([]byte, pkt.ArgA)
		n, errno := p.Read(pkt.Handle, buf)
		if errno == 0 {
			if _, err := conn.Write(buf[:n]); err != nil {
				return err
			}
		}
		setResult(pkt, int64(n), errno)

	case OpWrite:
		buf := make([]byte, pkt.ArgA)
		if _, err := io.ReadFull(conn, buf); err != nil {
			return err
		}
		n, errno := p.Write(pkt.Handle, buf)
		setResult(pkt, int64(n), errno)

	case OpSeek:
		pos, errno := p.Seek(pkt.Handle, int64(pkt.ArgA), resource.Whence(pkt.ArgB))
		setResult(pkt, pos, errno)

	case OpSync:
		setResult(pkt, 0, p.Sync(pkt.Handle))

	case OpTruncate:
		setResult(pkt, 0, p.Truncate(pkt.Handle, int64(pkt.ArgA)))

	case OpClose:
		setResult(pkt, 0, p.Close(pkt.Handle))

	default:
		diag.Printf("scheme: unknown op %d", pkt.Op)
		setResult(pkt, 0, EINVAL)
	}
	return nil
}

// readPath reads an n-byte path payload immediately following an
// OPEN/UNLINK/MKDIR packet header.
func readPath(r io.Reader, n uint64) (string, error) {
	buf := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
	}
	return string(buf), nil
}
