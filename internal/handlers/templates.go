package handlers

import "html/template"

// Valores para a página de QR code
type qrPageValues struct {
	Title            string
	TxID             string
	Reference        string
	QRPayload        string
	Amount           string
	SettlementAmount string
}

// Valores para o console de teste
type testConsoleValues struct {
	Title            string
	TxID             string
	Reference        string
	OperationID      string
	Amount           string
	SettlementAmount string
	State            string
}

// qrPageTemplate é a página de pagamento exibida ao usuário: o código
// EMV para copia-e-cola e o polling do estado local da transação
var qrPageTemplate = template.Must(template.New("qr").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
  <meta charset="utf-8">
  <title>{{.Title}}</title>
</head>
<body>
  <h1>{{.Title}}</h1>
  <p>Referência: <strong>{{.Reference}}</strong></p>
  <p>Valor: R$ {{.Amount}} (≈ {{.SettlementAmount}} USDT)</p>
  <p>Escaneie o QR code ou use o copia-e-cola abaixo:</p>
  <pre id="emv">{{.QRPayload}}</pre>
  <p id="state">Aguardando pagamento...</p>
  <script>
    const poll = () => fetch('/payment/kamipay/poll/{{.TxID}}', {method: 'POST'})
      .then(r => r.json())
      .then(data => {
        if (data.state_message) {
          document.getElementById('state').textContent = data.state_message;
        }
        if (data.state === 'done' || data.state === 'canceled' || data.state === 'error') {
          window.location = '/payment/status';
        }
      });
    setInterval(poll, 5000);
  </script>
</body>
</html>
`))

// testConsoleTemplate é o console de teste, disponível apenas em sandbox
var testConsoleTemplate = template.Must(template.New("console").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
  <meta charset="utf-8">
  <title>{{.Title}}</title>
</head>
<body>
  <h1>{{.Title}}</h1>
  <table>
    <tr><td>Transação</td><td>{{.TxID}}</td></tr>
    <tr><td>Referência</td><td>{{.Reference}}</td></tr>
    <tr><td>Operation ID</td><td>{{.OperationID}}</td></tr>
    <tr><td>Valor BRL</td><td>{{.Amount}}</td></tr>
    <tr><td>Valor USDT</td><td>{{.SettlementAmount}}</td></tr>
    <tr><td>Estado</td><td>{{.State}}</td></tr>
  </table>
</body>
</html>
`))

// statusPageTemplate é a página genérica de status, destino dos
// redirecionamentos de navegador
var statusPageTemplate = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
  <meta charset="utf-8">
  <title>Status do Pagamento</title>
</head>
<body>
  <h1>Status do Pagamento</h1>
  <p>O processamento do seu pagamento foi registrado. Você receberá a confirmação em instantes.</p>
</body>
</html>
`))
