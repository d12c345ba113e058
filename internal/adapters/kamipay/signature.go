package kamipay

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
)

// A KamiPay assina o webhook sobre a re-serialização canônica do JSON
// recebido, não sobre os bytes brutos: ordem de chaves preservada como
// recebida, separadores ',' e ':' sem espaços, caracteres não-ASCII sem
// escape (equivalente ao json.dumps(sort_keys=False, ensure_ascii=False,
// separators=(',',':')) do emissor). Qualquer divergência de formatação
// entre emissor e receptor quebra a verificação.

// CanonicalJSON re-serializa um documento JSON na forma canônica usada
// pelo cálculo de assinatura
func CanonicalJSON(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber() // preserva a forma literal dos números

	var buf bytes.Buffer
	if err := canonicalizeValue(dec, &buf); err != nil {
		return nil, fmt.Errorf("payload JSON inválido: %w", err)
	}
	// Rejeita lixo após o documento
	if dec.More() {
		return nil, fmt.Errorf("payload JSON inválido: conteúdo após o documento")
	}
	return buf.Bytes(), nil
}

// canonicalizeValue consome o próximo valor do decoder e o re-emite
// preservando a ordem das chaves conforme recebidas
func canonicalizeValue(dec *json.Decoder, buf *bytes.Buffer) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	return canonicalizeToken(dec, buf, tok)
}

func canonicalizeToken(dec *json.Decoder, buf *bytes.Buffer, tok json.Token) error {
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			buf.WriteByte('{')
			first := true
			for dec.More() {
				if !first {
					buf.WriteByte(',')
				}
				first = false

				keyTok, err := dec.Token()
				if err != nil {
					return err
				}
				key, ok := keyTok.(string)
				if !ok {
					return fmt.Errorf("chave de objeto inesperada: %v", keyTok)
				}
				if err := writeCanonicalString(buf, key); err != nil {
					return err
				}
				buf.WriteByte(':')
				if err := canonicalizeValue(dec, buf); err != nil {
					return err
				}
			}
			if _, err := dec.Token(); err != nil { // consome '}'
				return err
			}
			buf.WriteByte('}')
		case '[':
			buf.WriteByte('[')
			first := true
			for dec.More() {
				if !first {
					buf.WriteByte(',')
				}
				first = false
				if err := canonicalizeValue(dec, buf); err != nil {
					return err
				}
			}
			if _, err := dec.Token(); err != nil { // consome ']'
				return err
			}
			buf.WriteByte(']')
		}
		return nil
	case string:
		return writeCanonicalString(buf, v)
	case json.Number:
		buf.WriteString(v.String())
		return nil
	case bool:
		buf.WriteString(strconv.FormatBool(v))
		return nil
	case nil:
		buf.WriteString("null")
		return nil
	default:
		return fmt.Errorf("token JSON inesperado: %v", tok)
	}
}

// writeCanonicalString emite uma string JSON sem escapar HTML nem
// caracteres não-ASCII (equivalente a ensure_ascii=False)
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode acrescenta '\n' ao final
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

// ComputeSignature calcula a assinatura HMAC-SHA256 (hex) do payload
// canônico usando a chave de assinatura do provedor
func ComputeSignature(signatureKey string, raw []byte) (string, error) {
	canonical, err := CanonicalJSON(raw)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(signatureKey))
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifySignature compara em tempo constante a assinatura recebida com a esperada
func VerifySignature(signatureKey string, raw []byte, signature string) (bool, error) {
	expected, err := ComputeSignature(signatureKey, raw)
	if err != nil {
		return false, err
	}
	return hmac.Equal([]byte(signature), []byte(expected)), nil
}
