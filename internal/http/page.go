package http

// screenPage renders screen.View. While a refresh is running the page reloads
// itself so the indicator clears once the fetch completes.
const screenPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
{{if .View.Refreshing}}<meta http-equiv="refresh" content="1">{{end}}
<title>Weather</title>
<style>
body { margin: 0; background-color: #EEE; font-family: sans-serif; }
.screen { display: flex; flex-direction: column; min-height: 100vh; justify-content: center; align-items: center; }
.alert { background: #fff3cd; border: 1px solid #e0c36c; padding: 8px 12px; margin: 8px; }
.refreshing { color: #1976D2; margin-bottom: 16px; }
.loading-label { font-size: 30px; }
.weather { margin-bottom: 16px; font-size: 24px; font-weight: bold; }
.temperature { font-size: 16px; }
</style>
</head>
<body>
{{range .Alerts}}<div class="alert" role="alert">{{.Message}}
<form method="post" action="/alerts/{{.ID}}/dismiss" style="display:inline"><button type="submit">OK</button></form></div>
{{end}}<div class="screen">
{{if .View.Refreshing}}<div class="refreshing" aria-busy="true">Refreshing...</div>{{end}}
{{if .View.Loading}}<div class="loading-label">{{.View.LoadingLabel}}</div>
{{else}}{{range .View.Items}}<div class="item" id="{{.Key}}">
<div class="weather">{{.Label}}</div>
<div class="temperature">{{.Temperature}}</div>
</div>
{{end}}{{end}}<form method="post" action="/refresh"><button type="submit">Refresh</button></form>
</div>
</body>
</html>
`
