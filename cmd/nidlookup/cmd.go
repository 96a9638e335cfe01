package main

import (
	"debug/elf"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/psreverse/nidresolver"
	"github.com/psreverse/nidresolver/pkg/logging"
	"github.com/psreverse/nidresolver/pkg/logging/logfields"
	"github.com/psreverse/nidresolver/pkg/nid"
	"github.com/psreverse/nidresolver/pkg/remote"
	"github.com/psreverse/nidresolver/pkg/symtab"
)

func newCommand() *cobra.Command {
	var (
		elfPath   string
		pid       int
		metaAddr  string
		imagebase string
		encoding  string
		logLevel  string
		logFormat string
	)

	this := &cobra.Command{
		Use:   "nidlookup [symbol...]",
		Short: "Resolve symbol names to virtual addresses in a binary image.",
		Long: `
Resolve symbol names to virtual addresses. The symbol table is taken either
from a local ELF file (--elf) or from a running process whose library
metadata record address is known (--pid together with --meta).
		`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("at least one symbol is required")
			}
			if (elfPath == "") == (metaAddr == "") {
				return fmt.Errorf("exactly one of --elf or --meta must be specified")
			}

			lopts := []logging.LogOption{
				logging.WithLogLevel(logLevel),
			}
			if strings.EqualFold(logFormat, "json") {
				lopts = append(lopts, logging.WithJsonFormat())
			}
			logging.SetupLogging(lopts...)

			log := logging.DefaultLogger.WithField(logfields.LogComponent, "nidlookup")

			base, err := parseAddr(imagebase)
			if err != nil {
				return fmt.Errorf("invalid --imagebase: %w", err)
			}

			ropts := []nidresolver.Option{}
			if encoding != "" {
				enc, ok := nid.Get(encoding)
				if !ok {
					return fmt.Errorf("unknown encoding %q", encoding)
				}
				ropts = append(ropts, nidresolver.WithEncoder(enc))
			}

			var mem *remote.ProcessMemory
			if metaAddr != "" {
				if pid <= 0 {
					return fmt.Errorf("--meta requires --pid")
				}
				if mem, err = remote.OpenProcessMemory(pid); err != nil {
					return err
				}
				defer mem.Close()
				log.WithField(logfields.PID, pid).Debugf("Opened target process memory")
				ropts = append(ropts, nidresolver.WithRemoteMemory(mem))
			}

			r := nidresolver.NewResolver(ropts...)
			defer r.Close()
			if err = r.Reserve(1); err != nil {
				return err
			}

			if elfPath != "" {
				err = addLocalElf(r, elfPath, base)
			} else {
				var meta uint64
				if meta, err = parseAddr(metaAddr); err != nil {
					return fmt.Errorf("invalid --meta: %w", err)
				}
				err = r.AddLibraryMetadata(base, meta)
			}
			if err != nil {
				return err
			}
			source := elfPath
			if source == "" {
				source = metaAddr
			}
			log.WithField(logfields.Library, source).Debugf("Registered library")

			for _, name := range args {
				addr, ok := r.Lookup(name)
				if !ok {
					log.WithField(logfields.Symbol, name).Warnf("Symbol not found")
					fmt.Printf("%-40s <not found>\n", name)
					continue
				}
				fmt.Printf("%-40s %#x\n", name, addr)
			}
			return nil
		},
	}

	this.Flags().StringVarP(&elfPath, "elf", "e", "", "Path to a local ELF file to take the symbol table from.")
	this.Flags().IntVarP(&pid, "pid", "p", 0, "Target process id for --meta.")
	this.Flags().StringVarP(&metaAddr, "meta", "m", "", "Address of the library metadata record in the target process.")
	this.Flags().StringVarP(&imagebase, "imagebase", "b", "0", "Image base the library is loaded at. Symbol values are relative to it.")
	this.Flags().StringVar(&encoding, "encoding", env("NID_ENCODING", ""), "Query name encoding. Registered encodings: 'none' and 'nid'.")
	this.Flags().StringVarP(&logLevel, "log-level", "L", env("LOG_LEVEL", "info"), "Log level.")
	this.Flags().StringVar(&logFormat, "log-format", env("LOG_FORMAT", "text"), "Log format. Must be 'json' or 'text'.")

	return this
}

func addLocalElf(r *nidresolver.Resolver, path string, imagebase uint64) error {
	f, err := elf.Open(path)
	if err != nil {
		return fmt.Errorf("open elf %s: %w", path, err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS64 {
		return fmt.Errorf("%s: only 64-bit ELF files are supported", path)
	}

	symsec, strsec := f.Section(".symtab"), f.Section(".strtab")
	if symsec == nil {
		symsec, strsec = f.Section(".dynsym"), f.Section(".dynstr")
	}
	if symsec == nil || strsec == nil {
		return fmt.Errorf("%s: no symbol table", path)
	}

	raw, err := symsec.Data()
	if err != nil {
		return fmt.Errorf("read %s: %w", symsec.Name, err)
	}
	strtab, err := strsec.Data()
	if err != nil {
		return fmt.Errorf("read %s: %w", strsec.Name, err)
	}
	syms, err := symtab.ParseSym64(raw)
	if err != nil {
		return err
	}
	return r.AddLibrary(imagebase, syms, strtab)
}

func parseAddr(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 0, 64)
}

func env(key string, defval string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defval
}
