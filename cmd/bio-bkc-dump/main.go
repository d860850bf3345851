// bio-bkc-dump linearizes a sharded bkc output (written by bio-bkc) to
// tab-separated text on stdout, for inspection and for diffing test
// fixtures.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/refresh-bio/bkc/bkfile"
)

func main() {
	dir := flag.String("dir", ".", "Directory containing the shard files.")
	stem := flag.String("stem", "", "Output stem (the basename given to --output when bio-bkc ran).")
	nSplits := flag.Int("no-splits", 1, "Number of shards bio-bkc was run with.")
	flag.Parse()

	if *stem == "" {
		fmt.Fprintln(os.Stderr, "bio-bkc-dump: --stem is required")
		os.Exit(2)
	}

	mr, err := bkfile.OpenAll(*dir, *stem, *nSplits)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bio-bkc-dump: %v\n", err)
		os.Exit(1)
	}
	defer mr.Close()

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()

	fmt.Fprintln(w, "sample_id\tbarcode\tleader\tfollower\tcount")
	for {
		rec, err := mr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "bio-bkc-dump: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\n", rec.SampleID, rec.Barcode, rec.Leader, rec.Follower, rec.Count)
	}
}
