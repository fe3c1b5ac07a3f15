package faucet

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type fakeNode struct {
	mu       sync.Mutex
	balances map[string]*big.Int
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     uint64   `json:"id"`
		Method string   `json:"method"`
		Params []string `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	switch req.Method {
	case "eth_getBalance":
		bal, ok := n.balances[req.Params[0]]
		if !ok {
			bal = new(big.Int)
		}
		resp["result"] = hexutil.EncodeBig(bal)
	case "anvil_setBalance":
		v, err := hexutil.DecodeBig(req.Params[1])
		if err != nil {
			resp["error"] = map[string]any{"code": -32602, "message": err.Error()}
			break
		}
		n.balances[req.Params[0]] = v
		resp["result"] = nil
	default:
		resp["error"] = map[string]any{"code": -32601, "message": "method not found"}
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func TestFaucet(t *testing.T) {
	node := &fakeNode{balances: map[string]*big.Int{}}
	srv := httptest.NewServer(node)
	defer srv.Close()

	f, err := New(Config{URL: srv.URL, Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	ctx := context.Background()

	want := new(big.Int).Mul(big.NewInt(10), big.NewInt(1e18))
	if err := f.SetBalance(ctx, addr, want); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}
	got, err := f.Balance(ctx, addr)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if got.Cmp(want) != 0 {
		t.Errorf("balance = %s, want %s", got, want)
	}
}

func TestFaucetUnsupportedMethod(t *testing.T) {
	srv := httptest.NewServer(&fakeNode{balances: map[string]*big.Int{}})
	defer srv.Close()

	f, err := New(Config{URL: srv.URL, Method: "hardhat_setBalance", Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.SetBalance(context.Background(), common.Address{}, big.NewInt(1)); err == nil {
		t.Fatalf("expected error for unsupported method")
	}
}

func TestFaucetSendsConfiguredHeaders(t *testing.T) {
	node := &fakeNode{balances: map[string]*big.Int{}}
	var (
		mu   sync.Mutex
		auth []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		auth = append(auth, r.Header.Get("Authorization"))
		mu.Unlock()
		node.ServeHTTP(w, r)
	}))
	defer srv.Close()

	f, err := New(Config{
		URL:     srv.URL,
		Timeout: time.Second,
		Headers: map[string]string{"Authorization": "Bearer dev"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Balance(context.Background(), common.Address{}); err != nil {
		t.Fatalf("Balance: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(auth) != 1 || auth[0] != "Bearer dev" {
		t.Fatalf("Authorization = %v", auth)
	}
}
