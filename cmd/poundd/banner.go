/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package main

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/jhill/pound/config"
	"github.com/jhill/pound/runtime"
)

// printBanner writes a one-shot, human-facing startup summary straight
// to stdout, colored the way console.ColorPrint prints operator-facing
// text (_examples/nabbar-golib/console/color.go's direct
// color.New(attrs...).Println use) rather than through the structured
// logrus logger used for everything after startup.
func printBanner(top *runtime.Topology, cfg *config.RootConfig) {
	title := color.New(color.FgGreen, color.Bold)
	label := color.New(color.FgCyan)

	_, _ = title.Println("poundd starting")

	for _, l := range top.Listeners {
		kind := "http"
		if l.IsTLS {
			kind = "https"
		}
		_, _ = label.Printf("  listener %-16s ", l.Name)
		fmt.Printf("%-5s %s (%d services)\n", kind, l.Address, len(l.Services()))
	}

	if cfg.Control.Listen != "" {
		_, _ = label.Print("  control         ")
		fmt.Println(cfg.Control.Listen)
	}
	if cfg.Metrics.Listen != "" {
		_, _ = label.Print("  metrics         ")
		fmt.Println(cfg.Metrics.Listen)
	}
}
