/*
 * Copyright 2022 The AgentChain Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command chaindump prints the contents of an agent chain database as JSON,
// newest element first, for offline inspection.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/agentchain/agentchain/chain"
	"github.com/agentchain/agentchain/crypto/kms"
	"github.com/agentchain/agentchain/storage"
	"github.com/agentchain/agentchain/utils/log"
)

var (
	version = "unknown"

	dbPath      string
	publicOnly  bool
	logLevel    string
	showVersion bool
)

const name = "chaindump"

func init() {
	flag.StringVar(&dbPath, "db", "", "Path of the chain database file")
	flag.BoolVar(&publicOnly, "public-only", false, "Withhold private entry bodies from the dump")
	flag.StringVar(&logLevel, "log-level", "warning", "Console log level")
	flag.BoolVar(&showVersion, "version", false, "Show version information and exit")
}

func main() {
	flag.Parse()
	if showVersion {
		fmt.Printf("%v %v %v %v %v\n",
			name, version, runtime.GOOS, runtime.GOARCH, runtime.Version())
		os.Exit(0)
	}
	log.SetStringLevel(logLevel, log.WarnLevel)
	if dbPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	store, err := storage.Open(dbPath)
	if err != nil {
		log.WithField("db", dbPath).WithError(err).Fatal("open chain database")
	}
	defer store.Close()

	// The dump never signs anything; an empty keystore satisfies the buffer.
	var (
		ks  = kms.NewLocalKeystore()
		buf *chain.SourceChainBuf
	)
	if publicOnly {
		buf, err = chain.PublicOnly(store, ks)
	} else {
		buf, err = chain.NewSourceChainBuf(store, ks)
	}
	if err != nil {
		log.WithError(err).Fatal("load source chain")
	}

	dump, err := buf.DumpAsJSON()
	if err != nil {
		log.WithError(err).Fatal("dump chain")
	}
	fmt.Println(dump)
}
