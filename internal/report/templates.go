package report

// htmlTemplate is the self-contained sweep report page. Styling lives
// in CSS custom properties so the theme toggle only swaps a class, and
// the chart script builds every chart from one spec table.
const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}} - Benchmark Sweep Report</title>
<script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
<style>
  :root {
    --paper: #fdfdfc;
    --panel: #f4f4f1;
    --ink: #222426;
    --ink-soft: #5f6569;
    --ink-faint: #9aa0a4;
    --line: #d8d8d3;
    --accent: #2563eb;
    --ok: #15803d;
    --warn: #b45309;
    --bad: #b91c1c;
  }
  html.dark {
    --paper: #16181b;
    --panel: #1f2226;
    --ink: #e6e4df;
    --ink-soft: #a8adb2;
    --ink-faint: #6d7378;
    --line: #32363b;
    --accent: #60a5fa;
    --ok: #4ade80;
    --warn: #fbbf24;
    --bad: #f87171;
  }

  html { box-sizing: border-box; }
  *, *::before, *::after { box-sizing: inherit; }

  body {
    margin: 0;
    font: 15px/1.55 system-ui, 'Segoe UI', sans-serif;
    background: var(--paper);
    color: var(--ink);
  }

  main {
    max-width: 1100px;
    margin: 0 auto;
    padding: 0 1.5rem 3rem;
  }

  .masthead {
    border-top: 4px solid var(--accent);
    border-bottom: 1px solid var(--line);
    padding: 1.5rem 0 1.25rem;
    margin-bottom: 2rem;
  }
  .masthead h1 {
    margin: 0;
    font-size: 1.6rem;
    font-weight: 650;
    letter-spacing: -0.01em;
  }
  .masthead .request-line {
    margin: 0.3rem 0 0;
    font-family: ui-monospace, 'Cascadia Code', Menlo, monospace;
    font-size: 0.9rem;
    color: var(--ink-soft);
  }
  .masthead .run-facts {
    margin-top: 0.6rem;
    font-size: 0.82rem;
    color: var(--ink-faint);
  }
  .masthead .run-facts span + span::before {
    content: '·';
    margin: 0 0.55rem;
  }

  .verdict {
    float: right;
    margin-top: 0.2rem;
    padding: 0.35rem 0.9rem;
    border: 1px solid;
    border-radius: 3px;
    font-weight: 650;
    font-size: 0.95rem;
  }
  .verdict.pass { color: var(--ok); border-color: var(--ok); }
  .verdict.fail { color: var(--bad); border-color: var(--bad); }

  #mode-switch {
    float: right;
    margin: 0.3rem 0 0 1rem;
    padding: 0.3rem 0.7rem;
    font-size: 0.8rem;
    color: var(--ink-soft);
    background: none;
    border: 1px solid var(--line);
    border-radius: 3px;
    cursor: pointer;
  }
  #mode-switch:hover { border-color: var(--ink-soft); }

  .facts-strip {
    display: flex;
    flex-wrap: wrap;
    gap: 0;
    border: 1px solid var(--line);
    border-radius: 3px;
    margin-bottom: 2.25rem;
    overflow: hidden;
  }
  .facts-strip > div {
    flex: 1 1 150px;
    padding: 0.9rem 1.1rem;
    border-right: 1px solid var(--line);
  }
  .facts-strip > div:last-child { border-right: none; }
  .facts-strip dt {
    margin: 0;
    font-size: 0.7rem;
    text-transform: uppercase;
    letter-spacing: 0.07em;
    color: var(--ink-faint);
  }
  .facts-strip dd {
    margin: 0.15rem 0 0;
    font-size: 1.3rem;
    font-weight: 600;
    font-variant-numeric: tabular-nums;
  }
  .facts-strip dd small {
    font-size: 0.78rem;
    font-weight: 400;
    color: var(--ink-soft);
  }

  h2 {
    font-size: 1.05rem;
    font-weight: 650;
    margin: 2.5rem 0 1rem;
    padding-bottom: 0.4rem;
    border-bottom: 1px solid var(--line);
  }

  .chart-pair {
    display: grid;
    grid-template-columns: 1fr 1fr;
    gap: 1.25rem;
  }
  .panel {
    background: var(--panel);
    border: 1px solid var(--line);
    border-radius: 3px;
    padding: 0.9rem 1rem 0.6rem;
  }
  .panel h3 {
    margin: 0 0 0.6rem;
    font-size: 0.8rem;
    font-weight: 600;
    text-transform: uppercase;
    letter-spacing: 0.06em;
    color: var(--ink-soft);
  }
  .panel .plot { position: relative; height: 250px; }

  table {
    width: 100%;
    border-collapse: collapse;
    font-size: 0.86rem;
    font-variant-numeric: tabular-nums;
  }
  th {
    text-align: left;
    font-size: 0.7rem;
    text-transform: uppercase;
    letter-spacing: 0.07em;
    color: var(--ink-faint);
    padding: 0.4rem 0.8rem;
    border-bottom: 2px solid var(--line);
  }
  td { padding: 0.45rem 0.8rem; }
  tbody tr:nth-child(even) { background: var(--panel); }
  td.absent { color: var(--ink-faint); font-style: italic; }
  td.why { color: var(--bad); font-size: 0.8rem; }

  .badge {
    font-size: 0.72rem;
    font-weight: 650;
    padding: 0.1rem 0.5rem;
    border-radius: 3px;
    white-space: nowrap;
  }
  .badge.pass { color: var(--ok); background: color-mix(in srgb, var(--ok) 12%, transparent); }
  .badge.fail { color: var(--bad); background: color-mix(in srgb, var(--bad) 12%, transparent); }
  .badge.skip { color: var(--warn); background: color-mix(in srgb, var(--warn) 14%, transparent); }

  footer {
    margin-top: 3rem;
    padding-top: 1rem;
    border-top: 1px solid var(--line);
    font-size: 0.75rem;
    color: var(--ink-faint);
  }

  @media (max-width: 860px) {
    .chart-pair { grid-template-columns: 1fr; }
    .verdict, #mode-switch { float: none; display: inline-block; margin: 0.8rem 1rem 0 0; }
  }
  @media print {
    #mode-switch { display: none; }
    .panel { break-inside: avoid; }
  }
</style>
</head>
<body>
<main>
  <header class="masthead">
    <button id="mode-switch" type="button">dark</button>
    <div class="verdict {{if .Failed}}fail{{else}}pass{{end}}">{{if .Failed}}✗ FAILED{{else}}✓ PASSED{{end}}</div>
    <h1>{{.Title}}</h1>
    {{if .Endpoint}}<p class="request-line">GET /{{.Endpoint}}?type={{.TypeSelector}}</p>{{end}}
    <div class="run-facts">
      <span>started {{.StartTime.Format "2006-01-02 15:04:05"}}</span>
      <span>wall time {{formatDuration .Duration}}</span>
      <span>run {{.RunID}}</span>
    </div>
  </header>

  <dl class="facts-strip">
    <div><dt>Passes</dt><dd>{{.Passed}} <small>of {{.TotalRuns}}</small></dd></div>
    <div><dt>Total Requests</dt><dd>{{formatNumber .Totals.Requests}}</dd></div>
    <div><dt>Peak Rate</dt><dd>{{printf "%.1f" .Totals.PeakRPS}} <small>req/s</small></dd></div>
    <div><dt>Availability</dt><dd>{{printf "%.2f" (mul .Totals.Availability 100)}}<small>%</small></dd></div>
    <div><dt>Worst P95</dt><dd>{{formatLatency .Totals.WorstP95}}</dd></div>
    <div><dt>Data Transferred</dt><dd>{{formatBytes .Totals.Bytes}}</dd></div>
  </dl>

{{if .Levels}}
  <h2>Concurrency Sweep</h2>
  <div class="chart-pair">
    <div class="panel"><h3>Transaction Rate</h3><div class="plot"><canvas id="rateChart"></canvas></div></div>
    <div class="panel"><h3>Latency Percentiles</h3><div class="plot"><canvas id="latencyChart"></canvas></div></div>
    <div class="panel"><h3>Availability</h3><div class="plot"><canvas id="availabilityChart"></canvas></div></div>
    <div class="panel"><h3>Effective Concurrency</h3><div class="plot"><canvas id="concurrencyChart"></canvas></div></div>
  </div>
{{end}}

{{if .Iterations}}
  <h2>Iterations</h2>
  <table>
    <thead>
      <tr>
        <th>Concurrency</th><th>Rep</th><th>Outcome</th><th>Requests</th>
        <th>Rate</th><th>Availability</th><th>P95</th><th>Duration</th><th>Notes</th>
      </tr>
    </thead>
    <tbody>
    {{range .Iterations}}
      <tr>
        <td>{{.Concurrency}}</td>
        <td>{{.Repetition}}</td>
        <td><span class="badge {{outcomeClass .Outcome}}">{{outcomeIcon .Outcome}} {{.Outcome}}</span></td>
        {{if .Load}}
        <td>{{formatNumber .Load.TotalRequests}}</td>
        <td>{{printf "%.1f req/s" .Load.RPS}}</td>
        <td>{{printf "%.2f%%" (mul .Load.Availability 100)}}</td>
        <td>{{formatLatency .Load.Latency.P95}}</td>
        {{else}}
        <td colspan="4" class="absent">no load pass</td>
        {{end}}
        <td>{{formatDuration (elapsed .StartTime .EndTime)}}</td>
        <td class="why">{{failureReason .}}</td>
      </tr>
    {{end}}
    </tbody>
  </table>
{{end}}

  <footer>Generated by drover · {{.EndTime.Format "2006-01-02 15:04:05 MST"}}</footer>
</main>

<script>
(function () {
  'use strict';

  var THEME_KEY = 'drover-theme';
  var root = document.documentElement;
  var charts = [];

  var levelData = {{.LevelsJSON}};
  var nsPerMs = 1e6;

  function css(name) {
    return getComputedStyle(root).getPropertyValue(name).trim();
  }

  function series(field, scale) {
    return levelData.map(function (d) { return d[field] * (scale || 1); });
  }

  // One entry per chart; line() fills borderColor lazily so the palette
  // is read after the theme class settles.
  function chartSpecs() {
    var line = function (label, data, colorVar, extra) {
      var ds = {
        label: label,
        data: data,
        borderColor: css(colorVar),
        backgroundColor: 'transparent',
        borderWidth: 2,
        pointRadius: 2.5,
        tension: 0.25
      };
      for (var k in (extra || {})) ds[k] = extra[k];
      return ds;
    };

    return [
      {
        id: 'rateChart',
        yTitle: 'req/s',
        datasets: [line('Requests/sec', series('rps'), '--accent', { fill: 'origin' })]
      },
      {
        id: 'latencyChart',
        yTitle: 'latency (ms)',
        datasets: [
          line('P50', series('latencyP50', 1 / nsPerMs), '--ok'),
          line('P95', series('latencyP95', 1 / nsPerMs), '--warn'),
          line('P99', series('latencyP99', 1 / nsPerMs), '--bad')
        ]
      },
      {
        id: 'availabilityChart',
        yTitle: 'available (%)',
        yMin: 90,
        yMax: 100,
        datasets: [line('Availability', series('availability', 100), '--ok', { fill: 'origin' })]
      },
      {
        id: 'concurrencyChart',
        yTitle: 'users',
        datasets: [
          line('Target', series('concurrency'), '--line', { borderDash: [5, 4], pointRadius: 0, tension: 0 }),
          line('Measured', series('effective'), '--accent')
        ]
      }
    ];
  }

  function axis(title) {
    return {
      ticks: { color: css('--ink-soft') },
      grid: { color: css('--line') },
      title: { display: true, text: title, color: css('--ink-soft') }
    };
  }

  function buildCharts() {
    charts.forEach(function (c) { c.destroy(); });
    charts = [];

    var labels = levelData.map(function (d) { return String(d.concurrency); });
    chartSpecs().forEach(function (spec) {
      var el = document.getElementById(spec.id);
      if (!el) return;

      var y = axis(spec.yTitle);
      if (spec.yMin !== undefined) y.suggestedMin = spec.yMin;
      if (spec.yMax !== undefined) y.max = spec.yMax;
      else y.beginAtZero = true;

      charts.push(new Chart(el, {
        type: 'line',
        data: { labels: labels, datasets: spec.datasets },
        options: {
          responsive: true,
          maintainAspectRatio: false,
          interaction: { mode: 'index', intersect: false },
          plugins: { legend: { labels: { color: css('--ink'), boxWidth: 18 } } },
          scales: { x: axis('concurrent users'), y: y }
        }
      }));
    });
  }

  function applyTheme(name) {
    root.classList.toggle('dark', name === 'dark');
    var btn = document.getElementById('mode-switch');
    if (btn) btn.textContent = name === 'dark' ? 'light' : 'dark';
    // Chart.js caches colors at construction, so rebuild.
    if (levelData.length) buildCharts();
  }

  document.getElementById('mode-switch').addEventListener('click', function () {
    var next = root.classList.contains('dark') ? 'light' : 'dark';
    try { localStorage.setItem(THEME_KEY, next); } catch (e) {}
    applyTheme(next);
  });

  var stored = null;
  try { stored = localStorage.getItem(THEME_KEY); } catch (e) {}
  if (!stored && window.matchMedia('(prefers-color-scheme: dark)').matches) {
    stored = 'dark';
  }
  applyTheme(stored || 'light');
})();
</script>
</body>
</html>`
