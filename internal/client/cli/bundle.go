package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/awnumar/memguard"
	"github.com/dmitrijs2005/gophjournal/internal/client/services"
	"github.com/dmitrijs2005/gophjournal/internal/filex"
)

// Export writes the logged-in identity and its entries to path. The file is
// replaced atomically, so a failed export never leaves a truncated bundle.
func (a *App) Export(ctx context.Context, path string) error {
	var res *services.TransferResult
	err := filex.WriteFileAtomic(path, func(f *os.File) error {
		var err error
		res, err = a.bundles.Export(ctx, f)
		return err
	})
	if err != nil {
		return err
	}

	a.notify.Printf("Exported %d entries of %s to %s\n", res.Count, res.Identity, path)
	a.reportSkipped(res)
	return nil
}

// Import reads a bundle from path after asking for the secret of the
// identity inside it.
func (a *App) Import(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open bundle: %w", err)
	}
	defer f.Close()

	secret, err := a.readSecret("Secret of the exported identity")
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(secret)

	res, err := a.bundles.Import(ctx, f, secret)
	if err != nil {
		return err
	}

	a.notify.Printf("Imported %d entries of %s\n", res.Count, res.Identity)
	a.reportSkipped(res)
	return nil
}

func (a *App) reportSkipped(res *services.TransferResult) {
	for _, f := range res.Failures {
		a.notify.Errorf("skipped %s: %v", f.RecordID, f.Err)
	}
}
