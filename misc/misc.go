//
// Copyright 2015 Gregory Trubetskoy. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package misc is misc stuff.
package misc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	sanitizeRegexSpace       = regexp.MustCompile("\\s+")
	sanitizeRegexSlash       = regexp.MustCompile("/")
	sanitizeRegexNonAlphaNum = regexp.MustCompile("[^a-zA-Z_\\-0-9\\.]")
)

// SanitizeName makes a string safe to use as a chart source name,
// i.e. as a URL query value and a log token.
func SanitizeName(name string) string {
	name = sanitizeRegexSpace.ReplaceAllString(name, "_")
	name = sanitizeRegexSlash.ReplaceAllString(name, "-")
	return sanitizeRegexNonAlphaNum.ReplaceAllString(name, "")
}

// BetterParseDuration is time.ParseDuration which also understands
// "min", "hour", "mon" as well as d, w and y units, as found in chart
// range selectors ("-1d", "-2w" and so on).
func BetterParseDuration(s string) (time.Duration, error) {

	if strings.HasSuffix(s, "min") {
		s = s[0 : len(s)-2] // min -> m
	} else if strings.HasSuffix(s, "hour") {
		s = s[0 : len(s)-3] // hour -> h
	} else if strings.HasSuffix(s, "mon") {
		fd, err := strconv.ParseFloat(s[0:len(s)-3], 64)
		if err != nil {
			return 0, err
		}
		s = fmt.Sprintf("%vh", fd*30*24)
	}
	if d, err := time.ParseDuration(s); err != nil {
		if strings.Contains(err.Error(), "unknown unit") {
			if d, err2 := strconv.ParseInt(s[0:len(s)-1], 10, 64); err2 == nil {
				switch s[len(s)-1] {
				case 'd':
					return time.Duration(d*24) * time.Hour, nil
				case 'w':
					return time.Duration(d*168) * time.Hour, nil
				case 'y':
					return time.Duration(d*8760) * time.Hour, nil
				}
			}
		}
		return d, err
	} else {
		return d, nil
	}
}
