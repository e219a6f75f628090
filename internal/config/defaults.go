package config

// DefaultConfigYAML is written by `research init`.
const DefaultConfigYAML = `# quorum-research configuration
# Credentials are read from ANTHROPIC_API_KEY and TAVILY_API_KEY (or a .env file).

log:
  level: info
  format: auto

llm:
  provider: anthropic # or openai (any chat completions server via base_url)
  model: claude-3-5-sonnet-20240620
  temperature: 0
  max_tokens: 4096
  requests_per_second: 2
  burst: 4

search:
  tavily:
    max_results: 3
  wikipedia:
    language: en
    max_docs: 2

research:
  max_analysts: 3
  max_turns: 2
  max_concurrent_interviews: 4
  call_timeout: 90s
  run_timeout: 30m
  retry:
    max_attempts: 3
    base_delay: 1s
    max_delay: 20s

# Checkpoint storage: memory, sqlite, json or redis
state:
  backend: sqlite
  path: .research/state/runs.db
  redis:
    addr: localhost:6379
    key_prefix: "research:"
    ttl: 168h

server:
  addr: 127.0.0.1:8080

tracing:
  enabled: false
  service_name: quorum-research
  otlp_endpoint: localhost:4317

report:
  dir: .research/reports
`
