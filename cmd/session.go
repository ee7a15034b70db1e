package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"github.com/sw33tLie/valuestream/internal/utils"
	"github.com/sw33tLie/valuestream/pkg/bridge"
	"github.com/sw33tLie/valuestream/pkg/origin"
	"github.com/sw33tLie/valuestream/pkg/payment"
	"github.com/sw33tLie/valuestream/pkg/signal"
	"github.com/sw33tLie/valuestream/pkg/storage"
	"github.com/sw33tLie/valuestream/pkg/wallet/lnd"
	"github.com/sw33tLie/valuestream/pkg/wallet/prompt"
)

// session holds what a command needs to talk to the service: the local
// database, a port to the gateway and the signal client on top of it.
type session struct {
	db     *storage.DB
	local  *bridge.LocalPort
	port   bridge.Port
	client *signal.Client
}

// openDB opens the database. The file lock is taken per write, so several
// valuestream processes (a serving gateway included) can share it.
func openDB() (*storage.DB, error) {
	path, err := utils.GetAbsDBPath(viper.GetString("db.path"))
	if err != nil {
		return nil, err
	}
	lock, err := utils.NewDBLock(path)
	if err != nil {
		return nil, err
	}
	db, err := storage.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open database %s: %w", path, err)
	}
	db.SetWriteLock(lock)
	return db, nil
}

func newOriginStore(db *storage.DB) *origin.Store {
	return origin.NewStore(db, viper.GetString("origin.default"))
}

// openSession connects to the remote gateway when bridge.url is set and
// otherwise runs one in-process.
func openSession() (*session, error) {
	db, err := openDB()
	if err != nil {
		return nil, err
	}
	s := &session{db: db}

	if remote := viper.GetString("bridge.url"); remote != "" {
		utils.Log.Debugf("Using remote gateway %s", remote)
		s.port = bridge.NewHTTPPort(remote, viper.GetString("bridge.username"), viper.GetString("bridge.password"), nil)
	} else {
		s.local = bridge.NewLocalPort(bridge.NewGateway(newOriginStore(db), nil))
		s.port = s.local
	}
	s.client = signal.NewClient(s.port)
	return s, nil
}

func (s *session) Close() {
	if s.local != nil {
		s.local.Close()
	}
	if err := s.db.Close(); err != nil {
		utils.Log.Warnf("%v", err)
	}
}

// coordinator builds the payment coordinator with the configured wallet.
func (s *session) coordinator(assumeYes bool) *payment.Coordinator {
	return payment.NewCoordinator(payment.Config{
		Service:    s.client,
		Wallets:    walletLocator(assumeYes),
		AmountSats: viper.GetInt64("payment.amount_sats"),
		Journal:    s.db,
		OnState: func(runID string, st payment.State) {
			utils.Log.Debugf("Run %s: %s", runID, st)
		},
	})
}

// walletLocator finds the configured wallet first and a wallet advertised
// through the environment second.
func walletLocator(assumeYes bool) payment.WalletLocator {
	configured := func(context.Context) (payment.Wallet, bool) {
		return lndWallet(viper.GetString("wallet.lnd.url"), viper.GetString("wallet.lnd.macaroon"), assumeYes)
	}
	fromEnv := func(context.Context) (payment.Wallet, bool) {
		return lndWallet(os.Getenv("LND_REST_URL"), os.Getenv("LND_MACAROON"), assumeYes)
	}
	return payment.Chain(payment.LocatorFunc(configured), payment.LocatorFunc(fromEnv))
}

func lndWallet(url, macaroon string, assumeYes bool) (payment.Wallet, bool) {
	if url == "" || macaroon == "" {
		return nil, false
	}
	w, err := lnd.New(lnd.Config{URL: url, Macaroon: macaroon, Insecure: viper.GetBool("wallet.lnd.insecure")})
	if err != nil {
		utils.Log.Warnf("Wallet not usable: %v", err)
		return nil, false
	}
	if assumeYes || !viper.GetBool("wallet.confirm") {
		return w, true
	}
	return prompt.New(w, os.Stdin, os.Stderr), true
}
