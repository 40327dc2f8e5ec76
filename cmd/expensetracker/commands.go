package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
)

const usage = `usage: expensetracker [-user ID] <command> [args]

commands:
  migrate                                  apply schema migrations (run once before other commands)
  ping                                     check the store is reachable
  user add NAME EMAIL
  user list
  user get ID
  user find EMAIL
  user delete ID
  category add NAME                        (-user required)
  category list                            (-user required)
  category delete ID                       (-user required)
  tx add TYPE AMOUNT DATE CATEGORY [DESC]  (-user required)
  tx list                                  (-user required)
  tx range FROM TO                         (-user required)
  tx delete ID                             (-user required)
  summary YEAR MONTH                       (-user required)
`

var (
	errUsage    = errors.New("invalid usage")
	errNoUser   = errors.New("-user is required for this command")
	errNotOwned = errors.New("not owned by the current user")
)

type pinger interface {
	Ping(ctx context.Context) error
}

// app is the caller side of the services: it parses input, tracks the
// current user and enforces ownership before acting.
type app struct {
	users        *services.UserService
	categories   *services.CategoryService
	transactions *services.TransactionService
	pinger       pinger
	migrate      func(ctx context.Context) error
	log          *applog.StructuredLogger
	out          io.Writer

	userID int64
}

func (a *app) run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("expensetracker", flag.ContinueOnError)
	fs.SetOutput(a.out)
	fs.Usage = func() { fmt.Fprint(a.out, usage) }
	fs.Int64Var(&a.userID, "user", 0, "id of the current user")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return errUsage
	}

	cmd, rest := rest[0], rest[1:]
	switch cmd {
	case "migrate":
		if err := a.migrate(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "migrations applied")
		return nil
	case "ping":
		if err := a.pinger.Ping(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "connection successful")
		return nil
	case "user":
		return a.runUser(ctx, rest)
	case "category":
		return a.runCategory(ctx, rest)
	case "tx":
		return a.runTransaction(ctx, rest)
	case "summary":
		return a.runSummary(ctx, rest)
	default:
		fs.Usage()
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func (a *app) runUser(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: user needs a subcommand", errUsage)
	}
	switch sub := args[0]; {
	case sub == "add" && len(args) == 3:
		u := core.User{Name: strings.TrimSpace(args[1]), Email: strings.TrimSpace(args[2])}
		if err := u.Validate(); err != nil {
			return err
		}
		created, err := a.users.CreateUser(ctx, u.Name, u.Email)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "created user %d\n", created.ID.Value())
		return nil
	case sub == "list" && len(args) == 1:
		users, err := a.users.GetAllUsers(ctx)
		if err != nil {
			return err
		}
		a.printUsers(users)
		return nil
	case sub == "get" && len(args) == 2:
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		u, found, err := a.users.GetUserByID(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("user %d not found", id)
		}
		a.printUsers([]core.User{u})
		return nil
	case sub == "find" && len(args) == 2:
		u, found, err := a.users.FindUserByEmail(ctx, args[1])
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no user with email %q", args[1])
		}
		a.printUsers([]core.User{u})
		return nil
	case sub == "delete" && len(args) == 2:
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		if err := a.users.DeleteUser(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "deleted user %d\n", id)
		return nil
	default:
		return fmt.Errorf("%w: user %s", errUsage, strings.Join(args, " "))
	}
}

func (a *app) runCategory(ctx context.Context, args []string) error {
	if err := a.requireUser(ctx); err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: category needs a subcommand", errUsage)
	}
	switch sub := args[0]; {
	case sub == "add" && len(args) == 2:
		c := core.Category{UserID: a.userID, Name: strings.TrimSpace(args[1])}
		if err := c.Validate(); err != nil {
			return err
		}
		created, err := a.categories.CreateCategory(ctx, c.UserID, c.Name)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "created category %d\n", created.ID.Value())
		return nil
	case sub == "list" && len(args) == 1:
		cats, err := a.categories.GetCategoriesForUser(ctx, a.userID)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME")
		for _, c := range cats {
			fmt.Fprintf(w, "%d\t%s\n", c.ID.Value(), c.Name)
		}
		return w.Flush()
	case sub == "delete" && len(args) == 2:
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		if _, err := a.ownedCategory(ctx, id); err != nil {
			return err
		}
		if err := a.categories.DeleteCategory(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "deleted category %d\n", id)
		return nil
	default:
		return fmt.Errorf("%w: category %s", errUsage, strings.Join(args, " "))
	}
}

func (a *app) runTransaction(ctx context.Context, args []string) error {
	if err := a.requireUser(ctx); err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: tx needs a subcommand", errUsage)
	}
	switch sub := args[0]; {
	case sub == "add" && (len(args) == 5 || len(args) == 6):
		tx, err := parseTransaction(a.userID, args[1:])
		if err != nil {
			return err
		}
		if _, err := a.ownedCategory(ctx, tx.CategoryID); err != nil {
			return err
		}
		created, err := a.transactions.AddTransaction(ctx, tx.UserID, tx.CategoryID, tx.Type, tx.Amount, tx.Date, tx.Description)
		if err != nil {
			return err
		}
		a.log.LogTransactionAdded(ctx, created)
		fmt.Fprintf(a.out, "created transaction %d\n", created.ID.Value())
		return nil
	case sub == "list" && len(args) == 1:
		txs, err := a.transactions.GetTransactionsForUser(ctx, a.userID)
		if err != nil {
			return err
		}
		return a.printTransactions(txs)
	case sub == "range" && len(args) == 3:
		from, err := core.ParseDate(args[1])
		if err != nil {
			return fmt.Errorf("invalid from date %q: %w", args[1], err)
		}
		to, err := core.ParseDate(args[2])
		if err != nil {
			return fmt.Errorf("invalid to date %q: %w", args[2], err)
		}
		txs, err := a.transactions.GetTransactionsForUserInRange(ctx, a.userID, from, to)
		if err != nil {
			return err
		}
		return a.printTransactions(txs)
	case sub == "delete" && len(args) == 2:
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		tx, found, err := a.transactions.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("transaction %d not found", id)
		}
		if tx.UserID != a.userID {
			return fmt.Errorf("transaction %d: %w", id, errNotOwned)
		}
		if err := a.transactions.DeleteTransaction(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "deleted transaction %d\n", id)
		return nil
	default:
		return fmt.Errorf("%w: tx %s", errUsage, strings.Join(args, " "))
	}
}

func (a *app) runSummary(ctx context.Context, args []string) error {
	if err := a.requireUser(ctx); err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: summary YEAR MONTH", errUsage)
	}
	year, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid year %q", args[0])
	}
	month, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid month %q", args[1])
	}

	s, err := a.transactions.GetMonthlySummary(ctx, a.userID, year, month)
	if err != nil {
		return err
	}
	a.log.LogSummary(ctx, a.userID, s)

	fmt.Fprintf(a.out, "Summary %04d-%02d\n", s.Year, s.Month)
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "Income\t%s\t\n", core.FormatAmount(s.TotalIncome))
	fmt.Fprintf(w, "Expense\t%s\t\n", core.FormatAmount(s.TotalExpense))
	fmt.Fprintf(w, "Net\t%s\t\n", core.FormatAmount(s.Net))
	return w.Flush()
}

// requireUser checks the current user was given and exists.
func (a *app) requireUser(ctx context.Context) error {
	if a.userID <= 0 {
		return errNoUser
	}
	_, found, err := a.users.GetUserByID(ctx, a.userID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("user %d not found", a.userID)
	}
	return nil
}

func (a *app) ownedCategory(ctx context.Context, id int64) (core.Category, error) {
	c, found, err := a.categories.GetCategoryByID(ctx, id)
	if err != nil {
		return core.Category{}, err
	}
	if !found {
		return core.Category{}, fmt.Errorf("category %d not found", id)
	}
	if c.UserID != a.userID {
		return core.Category{}, fmt.Errorf("category %d: %w", id, errNotOwned)
	}
	return c, nil
}

// parseTransaction reads TYPE AMOUNT DATE CATEGORY [DESC].
func parseTransaction(userID int64, args []string) (core.Transaction, error) {
	typ, err := core.ParseTransactionType(args[0])
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(args[1])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", args[1], err)
	}
	date, err := core.ParseDate(args[2])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", args[2])
	}
	categoryID, err := parseID(args[3])
	if err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{
		UserID:     userID,
		CategoryID: categoryID,
		Type:       typ,
		Amount:     amount,
		Date:       date,
	}
	if len(args) == 5 {
		tx.Description = strings.TrimSpace(args[4])
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func (a *app) printUsers(users []core.User) {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tCREATED")
	for _, u := range users {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID.Value(), u.Name, u.Email, u.CreatedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()
}

func (a *app) printTransactions(txs []core.Transaction) error {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tTYPE\tAMOUNT\tCATEGORY\tDESCRIPTION")
	for _, tx := range txs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
			tx.ID.Value(), tx.Date, tx.Type, core.FormatAmount(tx.Amount), tx.CategoryID, tx.Description)
	}
	return w.Flush()
}
