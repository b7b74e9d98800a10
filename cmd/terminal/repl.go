package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"tokoku/client/internal/cart"
	"tokoku/client/internal/domain"
	"tokoku/client/internal/format"
	"tokoku/client/internal/httpapi"
	"tokoku/client/internal/listing"
	"tokoku/client/internal/logger"
	"tokoku/client/internal/notify"
	"tokoku/client/internal/poserr"
	"tokoku/client/internal/productform"
	"tokoku/client/internal/sales"
	"tokoku/client/internal/spreadsheet"
	"tokoku/client/internal/store"
)

const helpText = `perintah:
  login <user> <password> [ingat]   masuk
  logout | whoami | refresh
  <barcode> | scan <barcode>        pindai barang
  add <sku|id> [satuan] [distributor]
  cart | clear
  inc <n> | dec <n> | qty <n> <jumlah> | rm <n>
  customer <id|->                   pilih pelanggan (- untuk umum)
  discount <nominal> | tender <nominal> | note <teks>
  debt on|off                       kembalian untuk potong hutang
  pay | bon | partial               bayar lunas, hutang, sebagian
  stock <sku> | find <teks> | customers
  newproduct <sku> <harga> <barcode|-> <nama...>
  export <sales|products|debt|stock-history> [file]
  import <file.xlsx> | template <file.xlsx>
  quit`

var errUsage = errors.New("usage")

type terminal struct {
	store    *store.Store
	register *sales.Register
	client   *httpapi.Client
	log      *logger.Logger
	products *listing.View[domain.Product]

	mu          sync.Mutex
	out         io.Writer
	unsubscribe []func()
}

func newTerminal(st *store.Store, register *sales.Register, client *httpapi.Client, out io.Writer, log *logger.Logger) *terminal {
	t := &terminal{
		store:    st,
		register: register,
		client:   client,
		log:      log,
		out:      out,
	}
	t.products = listing.New(client.ListProducts, listing.Options{Name: "products", Logger: log})
	t.unsubscribe = append(t.unsubscribe,
		st.Toast().Subscribe(t.notice("")),
		register.Banner().Subscribe(t.notice("scan ")),
	)
	return t
}

func (t *terminal) close() {
	for _, fn := range t.unsubscribe {
		fn()
	}
	t.products.Close()
}

func (t *terminal) notice(prefix string) notify.Listener {
	return func(msg notify.Message, visible bool) {
		if visible {
			t.printf("[%s%s] %s\n", prefix, msg.Kind, msg.Text)
		}
	}
}

func (t *terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

// resume restores a saved session and probes it before the first prompt.
func (t *terminal) resume(ctx context.Context) {
	saved, err := t.store.Restore(ctx)
	if err != nil {
		t.log.Warn(ctx, "saved session unreadable", err)
		return
	}
	if !saved.Authenticated() {
		if name := t.store.RememberedUsername(ctx); name != "" {
			t.printf("login sebagai %s untuk mulai\n", name)
		}
		return
	}
	ok, err := t.store.CheckSession(ctx)
	if !ok {
		t.printf("sesi berakhir, silakan login\n")
		return
	}
	if err != nil {
		t.printf("server belum terjangkau, sesi dipertahankan\n")
		return
	}
	if err := t.store.LoadBootstrap(ctx); err != nil {
		t.log.Warn(ctx, "bootstrap after resume failed", err)
	}
	if u, ok := t.store.User(); ok {
		t.printf("melanjutkan sesi %s\n", u.Username)
	}
}

func (t *terminal) prompt() {
	if u, ok := t.store.User(); ok {
		t.printf("%s> ", u.Username)
		return
	}
	t.printf("> ")
}

// run reads commands until quit, EOF or ctx ends.
func (t *terminal) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	t.prompt()
	for {
		select {
		case <-ctx.Done():
			t.printf("\n")
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if t.exec(ctx, line) {
				return nil
			}
			t.prompt()
		}
	}
}

// exec runs one command line and reports whether the terminal should exit.
func (t *terminal) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	if isBarcode(cmd) && len(args) == 0 {
		cmd, args = "scan", fields
	}

	var err error
	switch cmd {
	case "quit", "exit":
		return true
	case "help", "?":
		t.printf("%s\n", helpText)
	case "login":
		err = t.login(ctx, args)
	case "logout":
		_ = t.store.Logout(ctx)
		t.register.Clear()
	case "whoami":
		t.whoami()
	default:
		if !t.store.Authenticated() {
			t.printf("silakan login terlebih dahulu\n")
			return false
		}
		err = t.dispatch(ctx, cmd, args)
	}
	if errors.Is(err, errUsage) {
		t.printf("format perintah salah, ketik help\n")
	} else if err != nil {
		t.printf("gagal: %s\n", poserr.UserMessage(err))
	}
	return false
}

func (t *terminal) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "refresh":
		return t.store.Invalidate(ctx, store.AllScopes())
	case "scan":
		if len(args) != 1 {
			return errUsage
		}
		t.register.Type(args[0])
		// Scan failures are already on the banner.
		_ = t.register.Enter(ctx)
		return nil
	case "add":
		return t.add(args)
	case "cart":
		t.showCart()
	case "clear":
		t.register.Clear()
	case "inc", "dec", "rm", "qty":
		return t.editLine(cmd, args)
	case "customer":
		return t.selectCustomer(args)
	case "discount", "tender":
		return t.amount(cmd, args)
	case "note":
		t.register.SetNote(strings.Join(args, " "))
	case "debt":
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			return errUsage
		}
		t.register.SetChangeToDebt(args[0] == "on")
	case "pay":
		t.pay(ctx, t.register.PayFull)
	case "bon":
		t.pay(ctx, t.register.PayCredit)
	case "partial":
		t.pay(ctx, t.register.PayPartial)
	case "stock":
		return t.stock(args)
	case "find":
		return t.find(ctx, args)
	case "customers":
		t.customers()
	case "newproduct":
		return t.newProduct(ctx, args)
	case "export":
		return t.export(ctx, args)
	case "import":
		return t.importProducts(ctx, args)
	case "template":
		return t.template(args)
	default:
		t.printf("perintah tidak dikenal: %s\n", cmd)
	}
	return nil
}

func isBarcode(s string) bool {
	if len(s) < 6 {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func (t *terminal) login(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return errUsage
	}
	remember := len(args) == 3 && args[2] == "ingat"
	// The store toasts both outcomes.
	_, _ = t.store.Login(ctx, args[0], args[1], remember)
	return nil
}

func (t *terminal) whoami() {
	u, ok := t.store.User()
	if !ok {
		t.printf("belum login\n")
		return
	}
	t.printf("%s (%s) %s\n", u.Name, u.Username, u.Role.Code)
}

func (t *terminal) findProduct(ref string) (domain.Product, bool) {
	if p, ok := t.store.Product(ref); ok {
		return p, true
	}
	for _, p := range t.store.Products() {
		if strings.EqualFold(p.SKU, ref) {
			return p, true
		}
	}
	return domain.Product{}, false
}

func (t *terminal) add(args []string) error {
	if len(args) < 1 || len(args) > 3 {
		return errUsage
	}
	p, ok := t.findProduct(args[0])
	if !ok {
		return poserr.New(poserr.CodeNotFound, "produk "+args[0]+" tidak ditemukan")
	}
	unit, distributor := "", ""
	if len(args) > 1 {
		unit = args[1]
	}
	if len(args) > 2 {
		distributor = args[2]
	}
	// Rejections are toasted by the register.
	_ = t.register.AddProduct(p.ID, unit, distributor)
	return nil
}

// lineKey resolves a 1-based line number as printed by cart.
func (t *terminal) lineKey(arg string) (cart.Key, error) {
	lines := t.register.Lines()
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(lines) {
		return cart.Key{}, poserr.Newf(poserr.CodeValidation, "baris %s tidak ada di keranjang", arg)
	}
	return lines[n-1].Key(), nil
}

func (t *terminal) editLine(cmd string, args []string) error {
	if len(args) < 1 {
		return errUsage
	}
	key, err := t.lineKey(args[0])
	if err != nil {
		return err
	}
	switch cmd {
	case "inc":
		_ = t.register.Increment(key)
	case "dec":
		_ = t.register.Decrement(key)
	case "rm":
		t.register.Remove(key)
	case "qty":
		if len(args) != 2 {
			return errUsage
		}
		qty, err := strconv.Atoi(args[1])
		if err != nil {
			return errUsage
		}
		_ = t.register.SetQuantity(key, qty)
	}
	t.showCart()
	return nil
}

func (t *terminal) selectCustomer(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	id := args[0]
	if id == "-" {
		id = ""
	}
	_ = t.register.SelectCustomer(id)
	return nil
}

func (t *terminal) amount(cmd string, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	v, err := format.ParseAmount(strings.Join(args, " "))
	if err != nil {
		return err
	}
	if cmd == "discount" {
		t.register.SetDiscount(v)
	} else {
		t.register.SetTendered(v)
	}
	t.showTotals()
	return nil
}

func (t *terminal) showCart() {
	lines := t.register.Lines()
	if len(lines) == 0 {
		t.printf("keranjang kosong\n")
		return
	}
	for i, l := range lines {
		t.printf("%2d. %s (%s) x%d @ %s = %s\n", i+1, l.Name, l.UnitName, l.Quantity,
			format.Currency(l.UnitPrice), format.Currency(l.Amount()))
	}
	t.showTotals()
}

func (t *terminal) showTotals() {
	co := t.register.Checkout()
	t.printf("subtotal %s  diskon %s  total %s\n",
		format.Currency(co.Subtotal), format.Currency(co.Discount), format.Currency(co.Total))
	switch {
	case co.Shortfall.IsPositive():
		t.printf("bayar %s  kurang %s\n", format.Currency(co.Tendered), format.Currency(co.Shortfall))
	default:
		t.printf("bayar %s  kembalian %s\n", format.Currency(co.Tendered), format.Currency(co.Change))
	}
	if co.Customer != nil {
		t.printf("pelanggan %s  hutang %s\n", co.Customer.Name, format.Currency(co.Customer.Debt))
	}
}

func (t *terminal) pay(ctx context.Context, submit func(context.Context) (sales.Receipt, error)) {
	receipt, err := submit(ctx)
	if err != nil {
		// Failures are toasted by the register or the store.
		return
	}
	trx := receipt.Transaction
	t.printf("%s %s total %s dibayar %s\n", trx.InvoiceNumber, trx.Type.Code,
		format.Currency(trx.Total), format.Currency(trx.Paid))
	if receipt.DebtApplied.IsPositive() {
		t.printf("dipotong ke hutang %s\n", format.Currency(receipt.DebtApplied))
	}
	if receipt.DebtPaymentErr != nil {
		t.printf("kembalian belum terpotong ke hutang: %s\n", poserr.UserMessage(receipt.DebtPaymentErr))
	}
	if receipt.CashReturned.IsPositive() {
		t.printf("kembalian tunai %s\n", format.Currency(receipt.CashReturned))
	}
}

func (t *terminal) stock(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	p, ok := t.findProduct(args[0])
	if !ok {
		return poserr.New(poserr.CodeNotFound, "produk "+args[0]+" tidak ditemukan")
	}
	t.printf("%s %s: %s\n", p.SKU, p.Name, format.StockDisplay(p.Stock, p.Units))
	return nil
}

func (t *terminal) find(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	page, _ := t.products.Load(ctx, domain.ListQuery{Search: strings.Join(args, " "), Limit: 10})
	if len(page.Data) == 0 {
		t.printf("tidak ada produk\n")
		return nil
	}
	for _, p := range page.Data {
		price := "-"
		if base, ok := p.BaseUnit(); ok {
			price = format.Currency(base.Price)
		}
		t.printf("%-16s %-28s %12s  %s\n", p.SKU, p.Name, price, format.StockDisplay(p.Stock, p.Units))
	}
	if page.Pagination.TotalPages > 1 {
		t.printf("halaman %d dari %d\n", page.Pagination.Page, page.Pagination.TotalPages)
	}
	return nil
}

func (t *terminal) customers() {
	for _, c := range t.store.Customers() {
		credit := ""
		if c.CanBon {
			credit = " bon"
		}
		t.printf("%-8s %-24s %-10s %s%s\n", c.ID, c.Name, c.Type.Code, format.Currency(c.Debt), credit)
	}
}

func (t *terminal) newProduct(ctx context.Context, args []string) error {
	if len(args) < 4 {
		return errUsage
	}
	price, err := format.ParseAmount(args[1])
	if err != nil {
		return err
	}
	form := productform.New("pcs")
	form.SKU = args[0]
	form.Name = strings.Join(args[3:], " ")
	if err := form.SetUnitPrice("pcs", price); err != nil {
		return err
	}
	if code := args[2]; code != "-" {
		distributors := t.store.Distributors()
		if len(distributors) == 0 {
			return poserr.New(poserr.CodePrecondition, "belum ada distributor untuk barcode")
		}
		if err := form.AddDistributor(distributors[0].ID); err != nil {
			return err
		}
		if err := form.AddBarcode(distributors[0].ID, code, "pcs"); err != nil {
			return err
		}
	}
	in, err := form.Request()
	if err != nil {
		return err
	}
	_, _ = t.store.CreateProduct(ctx, in)
	return nil
}

func (t *terminal) export(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errUsage
	}
	file, err := t.store.Export(ctx, args[0], nil)
	if err != nil {
		// Already toasted.
		return nil
	}
	path := file.FileName
	if len(args) == 2 {
		path = args[1]
	}
	if err := os.WriteFile(path, file.Data, 0o644); err != nil {
		return err
	}
	summary, err := spreadsheet.Summarize(file.Data)
	if err != nil {
		return err
	}
	t.printf("%s disimpan (%d baris)\n", filepath.Base(path), summary.TotalRows())
	return nil
}

func (t *terminal) importProducts(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	rows, err := spreadsheet.ReadProductImport(f)
	if err != nil {
		if typed := poserr.As(err); typed != nil {
			for row, problem := range typed.Details() {
				t.printf("  %s: %s\n", row, problem)
			}
		}
		return err
	}
	res, err := t.store.ImportProducts(ctx, rows)
	if err != nil {
		// Already toasted.
		return nil
	}
	t.printf("%d produk baru, %d diperbarui\n", res.Created, res.Updated)
	for _, problem := range res.Errors {
		t.printf("  %s\n", problem)
	}
	return nil
}

func (t *terminal) template(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	if err := spreadsheet.WriteTemplate(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	t.printf("template disimpan ke %s\n", args[0])
	return nil
}
