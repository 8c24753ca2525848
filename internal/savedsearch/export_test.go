// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package savedsearch

// SetSuffixFunc replaces the shortcode suffix generator.
func (service *Service) SetSuffixFunc(fn func() string) { service.newSuffix = fn }
