// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// A minimal deribitd config:
//
//	instance:
//	  id: deribitd-1
//	feeds:
//	  tickers:
//	    - instrument: BTC-PERPETUAL
//	      interval: 5s
//	  indices:
//	    - index_name: btc_usd
//	database:
//	  timescale:
//	    host: localhost
//	    name: deribit
//	    user: deribit
//	    password: ${DERIBIT_DB_PASSWORD}
//
// Omitting database.timescale.host disables recording.
package config
