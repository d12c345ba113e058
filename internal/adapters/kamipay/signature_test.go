package kamipay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestCanonicalJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "removes whitespace and keeps key order",
			raw:  `{ "pix_id": "OP-1", "status": "done", "amount": 10.5 }`,
			want: `{"pix_id":"OP-1","status":"done","amount":10.5}`,
		},
		{
			name: "key order preserved as received, not sorted",
			raw:  `{"b": 2, "a": 1}`,
			want: `{"b":2,"a":1}`,
		},
		{
			name: "nested objects and arrays",
			raw:  `{"data": {"bank_txid": "BTX-1", "values": [1, 2, 3]}, "ok": true}`,
			want: `{"data":{"bank_txid":"BTX-1","values":[1,2,3]},"ok":true}`,
		},
		{
			name: "non-ascii left unescaped",
			raw:  `{"name": "João Silva", "city": "São Paulo"}`,
			want: `{"name":"João Silva","city":"São Paulo"}`,
		},
		{
			name: "null and number literal form preserved",
			raw:  `{"tx_id": null, "rate": 5.4000}`,
			want: `{"tx_id":null,"rate":5.4000}`,
		},
		{
			name: "html characters left unescaped",
			raw:  `{"note": "a<b & c>d"}`,
			want: `{"note":"a<b & c>d"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalJSON([]byte(tt.raw))
			if err != nil {
				t.Fatalf("CanonicalJSON() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("CanonicalJSON() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCanonicalJSONInvalid(t *testing.T) {
	tests := []string{
		`{"unterminated": `,
		`not json`,
		`{"a": 1} trailing`,
	}

	for _, raw := range tests {
		if _, err := CanonicalJSON([]byte(raw)); err == nil {
			t.Errorf("CanonicalJSON(%q) should fail", raw)
		}
	}
}

func TestComputeSignature(t *testing.T) {
	key := "signature-key"
	raw := []byte(`{ "pix_id": "OP-1", "status": "done" }`)

	// A assinatura é o HMAC-SHA256 da forma canônica, não dos bytes brutos
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(`{"pix_id":"OP-1","status":"done"}`))
	want := hex.EncodeToString(mac.Sum(nil))

	got, err := ComputeSignature(key, raw)
	if err != nil {
		t.Fatalf("ComputeSignature() error = %v", err)
	}
	if got != want {
		t.Errorf("ComputeSignature() = %v, want %v", got, want)
	}
}

func TestVerifySignature(t *testing.T) {
	key := "signature-key"
	raw := []byte(`{"pix_id":"OP-1","status":"done","data":{"bank_txid":"BTX-1"}}`)

	signature, err := ComputeSignature(key, raw)
	if err != nil {
		t.Fatalf("ComputeSignature() error = %v", err)
	}

	t.Run("matching signature", func(t *testing.T) {
		ok, err := VerifySignature(key, raw, signature)
		if err != nil {
			t.Fatalf("VerifySignature() error = %v", err)
		}
		if !ok {
			t.Error("VerifySignature() = false, want true")
		}
	})

	t.Run("tampered payload", func(t *testing.T) {
		tampered := []byte(`{"pix_id":"OP-1","status":"failed","data":{"bank_txid":"BTX-1"}}`)
		ok, err := VerifySignature(key, tampered, signature)
		if err != nil {
			t.Fatalf("VerifySignature() error = %v", err)
		}
		if ok {
			t.Error("VerifySignature() = true for tampered payload")
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		ok, err := VerifySignature("other-key", raw, signature)
		if err != nil {
			t.Fatalf("VerifySignature() error = %v", err)
		}
		if ok {
			t.Error("VerifySignature() = true for wrong key")
		}
	})
}

// A assinatura cobre a re-serialização do JSON recebido, então qualquer
// reordenação de campos pelo emissor muda o resultado. Fragilidade
// conhecida do contrato KamiPay, documentada aqui de propósito.
func TestSignatureDependsOnKeyOrder(t *testing.T) {
	key := "signature-key"

	sigA, err := ComputeSignature(key, []byte(`{"pix_id":"OP-1","status":"done"}`))
	if err != nil {
		t.Fatalf("ComputeSignature() error = %v", err)
	}
	sigB, err := ComputeSignature(key, []byte(`{"status":"done","pix_id":"OP-1"}`))
	if err != nil {
		t.Fatalf("ComputeSignature() error = %v", err)
	}

	if sigA == sigB {
		t.Error("signatures should differ when key order differs")
	}
}
