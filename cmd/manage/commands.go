package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mysite19/mysite/internal/services"
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, env *manageEnv, fs *flag.FlagSet, args []string) error
}

var commands = []command{
	{name: "aggr", summary: "print product count and total price of every order", run: runAggregate},
	{name: "bulk-discount", summary: "set the discount of products whose name contains -name", run: runBulkDiscount},
	{name: "usernames", summary: "print every username", run: runUsernames},
	{name: "import-products", summary: "import products from a CSV file as -user", run: runImportProducts},
	{name: "import-orders", summary: "import orders from a CSV file as -user", run: runImportOrders},
}

func runAggregate(ctx context.Context, env *manageEnv, fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	reports, err := services.NewReportService(env.db)
	if err != nil {
		return err
	}
	totals, err := reports.OrderTotals(ctx)
	if err != nil {
		return err
	}
	for _, t := range totals {
		fmt.Fprintf(env.out, "Order #%d with %d products worth %s\n", t.OrderID, t.Products, t.Total.StringFixed(2))
	}
	return nil
}

func runBulkDiscount(ctx context.Context, env *manageEnv, fs *flag.FlagSet, args []string) error {
	name := fs.String("name", "", "Case-insensitive fragment of the product name")
	discount := fs.Int("discount", 0, "Discount percentage between 0 and 100")
	if err := fs.Parse(args); err != nil {
		return err
	}

	products, err := services.NewProductService(env.db, nil)
	if err != nil {
		return err
	}
	updated, err := products.BulkDiscount(ctx, *name, *discount)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.out, "Updated discount on %d products\n", updated)
	return nil
}

func runUsernames(ctx context.Context, env *manageEnv, fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	accounts, err := services.NewAccountService(env.db, nil)
	if err != nil {
		return err
	}
	names, err := accounts.Usernames(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(env.out, name)
	}
	return nil
}

type importFlags struct {
	file     *string
	user     *string
	encoding *string
}

func bindImportFlags(fs *flag.FlagSet) importFlags {
	return importFlags{
		file:     fs.String("file", "", "CSV file to import"),
		user:     fs.String("user", "", "Username that owns the imported rows"),
		encoding: fs.String("encoding", "", "Text encoding of the file (default from config)"),
	}
}

// prepareImport opens the file and resolves the acting user. The caller closes the file.
func prepareImport(ctx context.Context, env *manageEnv, flags importFlags) (*services.ImportService, services.ImportRequest, *os.File, error) {
	if strings.TrimSpace(*flags.file) == "" || strings.TrimSpace(*flags.user) == "" {
		return nil, services.ImportRequest{}, nil, errors.New("-file and -user are required")
	}

	accounts, err := services.NewAccountService(env.db, nil)
	if err != nil {
		return nil, services.ImportRequest{}, nil, err
	}
	user, err := accounts.FindByUsername(ctx, strings.TrimSpace(*flags.user))
	if err != nil {
		return nil, services.ImportRequest{}, nil, fmt.Errorf("user %q: %w", *flags.user, err)
	}

	imports, err := services.NewImportService(env.db, services.WithDefaultEncoding(env.defaultEncoding))
	if err != nil {
		return nil, services.ImportRequest{}, nil, err
	}

	f, err := os.Open(*flags.file)
	if err != nil {
		return nil, services.ImportRequest{}, nil, fmt.Errorf("open %s: %w", *flags.file, err)
	}
	return imports, services.ImportRequest{
		Body:     f,
		FileName: filepath.Base(*flags.file),
		Encoding: *flags.encoding,
		Actor: services.Actor{
			UserID:   user.ID,
			Username: user.Username,
			IsRoot:   user.IsRoot,
			IsStaff:  user.IsStaff,
		},
	}, f, nil
}

func runImportProducts(ctx context.Context, env *manageEnv, fs *flag.FlagSet, args []string) error {
	flags := bindImportFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	imports, req, f, err := prepareImport(ctx, env, flags)
	if err != nil {
		return err
	}
	defer f.Close()

	result, err := imports.ImportProducts(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.out, "Imported %d products (job %s)\n", result.Created, result.JobID)
	return nil
}

func runImportOrders(ctx context.Context, env *manageEnv, fs *flag.FlagSet, args []string) error {
	flags := bindImportFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	imports, req, f, err := prepareImport(ctx, env, flags)
	if err != nil {
		return err
	}
	defer f.Close()

	summary, err := imports.ImportOrders(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.out, "Imported %d orders (job %s)\n", summary.Created, summary.JobID)
	if len(summary.MalformedRows) > 0 {
		fmt.Fprintf(env.out, "Malformed product lists on lines %v\n", summary.MalformedRows)
	}
	if len(summary.UnresolvedProductIDs) > 0 {
		fmt.Fprintf(env.out, "Unknown product ids %v\n", summary.UnresolvedProductIDs)
	}
	return nil
}
