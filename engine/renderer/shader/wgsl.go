package shader

import (
	"fmt"
	"strings"

	"github.com/lumen3d/lumen/engine/light"
	"github.com/lumen3d/lumen/engine/material"
	"github.com/lumen3d/lumen/engine/model"
)

// VertexEntryPoint and FragmentEntryPoint are the entry point names every
// generated variant uses.
const (
	VertexEntryPoint   = "vs_main"
	FragmentEntryPoint = "fs_main"
)

// GenerateWGSL emits the WGSL source for a normalized variant key. The
// emitted module always uses the fixed 64-byte vertex layout; the key decides
// which bindings exist and which shading paths are compiled in.
//
// Parameters:
//   - key: the normalized variant key
//
// Returns:
//   - string: the complete WGSL module source
func GenerateWGSL(key VariantKey) string {
	if key.Pass == PassShadow {
		return generateShadowWGSL(key)
	}
	return generateForwardWGSL(key)
}

// HasFragmentStage reports whether the variant's module contains a fragment
// entry point. Depth-only shadow variants without alpha cutouts omit it.
//
// Parameters:
//   - key: the normalized variant key
//
// Returns:
//   - bool: true if fs_main exists in the generated module
func HasFragmentStage(key VariantKey) bool {
	if key.Pass == PassShadow {
		return key.Features&material.FeatureAlphaMask != 0
	}
	return true
}

func generateShadowWGSL(key VariantKey) string {
	cutout := key.Features&material.FeatureAlphaMask != 0

	var b strings.Builder
	b.WriteString(`struct ShadowUniform {
    light_vp: mat4x4<f32>,
}

struct Model {
    model: mat4x4<f32>,
    normal_mat: mat4x4<f32>,
}

@group(0) @binding(0) var<uniform> shadow_u: ShadowUniform;
@group(1) @binding(0) var<uniform> model_u: Model;
`)
	if cutout {
		b.WriteString(`
struct MaterialParams {
    base_color: vec4<f32>,
    emissive: vec3<f32>,
    normal_scale: f32,
    metallic: f32,
    roughness: f32,
    occlusion: f32,
    alpha_cutoff: f32,
}

@group(2) @binding(0) var<uniform> material_u: MaterialParams;
`)
		if key.Features&material.FeatureBaseColorTexture != 0 {
			b.WriteString(`@group(2) @binding(1) var base_color_tex: texture_2d<f32>;
@group(2) @binding(2) var base_color_smp: sampler;
`)
		}
	}

	b.WriteString(`
struct VertexInput {
    @location(0) position: vec3<f32>,
    @location(1) normal: vec3<f32>,
    @location(2) uv: vec2<f32>,
    @location(3) color: vec4<f32>,
    @location(4) tangent: vec4<f32>,
}
`)

	if cutout {
		b.WriteString(`
struct VertexOutput {
    @builtin(position) clip_pos: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    let world = model_u.model * vec4<f32>(in.position, 1.0);
    out.clip_pos = shadow_u.light_vp * world;
    out.uv = in.uv;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) {
`)
		if key.Features&material.FeatureBaseColorTexture != 0 {
			b.WriteString(`    let alpha = material_u.base_color.a * textureSample(base_color_tex, base_color_smp, in.uv).a;
`)
		} else {
			b.WriteString(`    let alpha = material_u.base_color.a;
`)
		}
		b.WriteString(`    if (alpha < material_u.alpha_cutoff) {
        discard;
    }
}
`)
	} else {
		b.WriteString(`
@vertex
fn vs_main(in: VertexInput) -> @builtin(position) vec4<f32> {
    let world = model_u.model * vec4<f32>(in.position, 1.0);
    return shadow_u.light_vp * world;
}
`)
	}
	return b.String()
}

func generateForwardWGSL(key VariantKey) string {
	lit := key.Mode == ModeLit
	shadows := lit && key.ShadowCasters > 0

	var b strings.Builder

	b.WriteString(`struct Camera {
    view_proj: mat4x4<f32>,
    camera_pos: vec3<f32>,
    _pad: f32,
}

struct Model {
    model: mat4x4<f32>,
    normal_mat: mat4x4<f32>,
}

struct MaterialParams {
    base_color: vec4<f32>,
    emissive: vec3<f32>,
    normal_scale: f32,
    metallic: f32,
    roughness: f32,
    occlusion: f32,
    alpha_cutoff: f32,
}

@group(0) @binding(0) var<uniform> camera: Camera;
`)

	if lit {
		b.WriteString(`
struct Light {
    position: vec3<f32>,
    light_type: u32,
    color: vec3<f32>,
    intensity: f32,
    direction: vec3<f32>,
    light_range: f32,
    inner_cone: f32,
    outer_cone: f32,
    shadow_slot: u32,
    _pad: u32,
}

struct LightHeader {
    ambient: vec3<f32>,
    count: u32,
}

struct LightBuffer {
    header: LightHeader,
    lights: array<Light>,
}

@group(0) @binding(1) var<storage, read> light_buf: LightBuffer;
`)
	}

	if shadows {
		fmt.Fprintf(&b, `
struct ShadowSlot {
    light_vp: mat4x4<f32>,
    texel_size: vec2<f32>,
    bias: f32,
    normal_bias: f32,
}

@group(0) @binding(2) var<uniform> shadow_slots: array<ShadowSlot, %d>;
@group(0) @binding(3) var shadow_maps: texture_depth_2d_array;
@group(0) @binding(4) var shadow_smp: sampler_comparison;
`, light.MaxShadowCasters)
		if key.PointShadows {
			b.WriteString(`@group(0) @binding(5) var point_shadow_map: texture_depth_cube;
@group(0) @binding(6) var point_shadow_smp: sampler_comparison;
`)
		}
	}

	b.WriteString(`
@group(1) @binding(0) var<uniform> model_u: Model;
@group(2) @binding(0) var<uniform> material_u: MaterialParams;
`)

	// Texture bindings occupy fixed slots so bind group layouts depend only
	// on the feature mask.
	textureBindings := []struct {
		feature material.FeatureMask
		texVar  string
		smpVar  string
		binding int
	}{
		{material.FeatureBaseColorTexture, "base_color_tex", "base_color_smp", 1},
		{material.FeatureNormalTexture, "normal_tex", "normal_smp", 3},
		{material.FeatureMetallicRoughnessTexture, "mr_tex", "mr_smp", 5},
		{material.FeatureEmissiveTexture, "emissive_tex", "emissive_smp", 7},
		{material.FeatureOcclusionTexture, "occlusion_tex", "occlusion_smp", 9},
	}
	for _, tb := range textureBindings {
		if key.Features&tb.feature != 0 {
			fmt.Fprintf(&b, "@group(2) @binding(%d) var %s: texture_2d<f32>;\n", tb.binding, tb.texVar)
			fmt.Fprintf(&b, "@group(2) @binding(%d) var %s: sampler;\n", tb.binding+1, tb.smpVar)
		}
	}

	b.WriteString(`
struct VertexInput {
    @location(0) position: vec3<f32>,
    @location(1) normal: vec3<f32>,
    @location(2) uv: vec2<f32>,
    @location(3) color: vec4<f32>,
    @location(4) tangent: vec4<f32>,
}

struct VertexOutput {
    @builtin(position) clip_pos: vec4<f32>,
    @location(0) world_pos: vec3<f32>,
    @location(1) world_normal: vec3<f32>,
    @location(2) uv: vec2<f32>,
    @location(3) color: vec4<f32>,
    @location(4) world_tangent: vec4<f32>,
}

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    let world = model_u.model * vec4<f32>(in.position, 1.0);
    out.world_pos = world.xyz;
    out.clip_pos = camera.view_proj * world;
    out.world_normal = normalize((model_u.normal_mat * vec4<f32>(in.normal, 0.0)).xyz);
    out.uv = in.uv;
    out.color = in.color;
    out.world_tangent = vec4<f32>(normalize((model_u.model * vec4<f32>(in.tangent.xyz, 0.0)).xyz), in.tangent.w);
    return out;
}
`)

	if lit {
		writeLitHelpers(&b, key)
		writeLitFragment(&b, key)
	} else if key.Mode == ModeNormals {
		b.WriteString(`
@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    let n = normalize(in.world_normal);
    return vec4<f32>(n * 0.5 + vec3<f32>(0.5), 1.0);
}
`)
	} else {
		writeUnlitFragment(&b, key)
	}
	return b.String()
}

// writeLitHelpers emits the Cook-Torrance BRDF terms and, when the key has
// shadow slots, the shadow sampling functions.
func writeLitHelpers(b *strings.Builder, key VariantKey) {
	b.WriteString(`
const PI: f32 = 3.14159265359;

fn distribution_ggx(n_dot_h: f32, roughness: f32) -> f32 {
    let a = roughness * roughness;
    let a2 = a * a;
    let d = n_dot_h * n_dot_h * (a2 - 1.0) + 1.0;
    return a2 / max(PI * d * d, 0.0001);
}

fn geometry_smith(n_dot_v: f32, n_dot_l: f32, roughness: f32) -> f32 {
    let r = roughness + 1.0;
    let k = (r * r) / 8.0;
    let gv = n_dot_v / (n_dot_v * (1.0 - k) + k);
    let gl = n_dot_l / (n_dot_l * (1.0 - k) + k);
    return gv * gl;
}

fn fresnel_schlick(cos_theta: f32, f0: vec3<f32>) -> vec3<f32> {
    return f0 + (vec3<f32>(1.0) - f0) * pow(clamp(1.0 - cos_theta, 0.0, 1.0), 5.0);
}
`)

	if key.ShadowCasters > 0 {
		fmt.Fprintf(b, `
fn shadow_factor(slot: u32, world_pos: vec3<f32>, normal: vec3<f32>) -> f32 {
    let s = shadow_slots[slot];
    let offset_pos = world_pos + normal * s.normal_bias;
    let proj = s.light_vp * vec4<f32>(offset_pos, 1.0);
    let ndc = proj.xyz / proj.w;
    let uv = vec2<f32>(ndc.x * 0.5 + 0.5, 0.5 - ndc.y * 0.5);
    if (ndc.z <= 0.0 || ndc.z >= 1.0 || uv.x < 0.0 || uv.x > 1.0 || uv.y < 0.0 || uv.y > 1.0) {
        return 1.0;
    }
    let depth_ref = ndc.z - s.bias;
    var sum: f32 = 0.0;
    for (var dy: i32 = -1; dy <= 1; dy = dy + 1) {
        for (var dx: i32 = -1; dx <= 1; dx = dx + 1) {
            let o = vec2<f32>(f32(dx), f32(dy)) * s.texel_size;
            sum = sum + textureSampleCompareLevel(shadow_maps, shadow_smp, uv + o, i32(slot), depth_ref);
        }
    }
    return sum / 9.0;
}
`)
		if key.PointShadows {
			b.WriteString(`
fn point_shadow_factor(light_pos: vec3<f32>, light_range: f32, world_pos: vec3<f32>) -> f32 {
    let to_frag = world_pos - light_pos;
    let near = 0.1;
    let far = max(light_range, near + 0.01);
    let axis = max(max(abs(to_frag.x), abs(to_frag.y)), abs(to_frag.z));
    let depth_ref = (far / (far - near)) - (far * near) / ((far - near) * max(axis, near));
    return textureSampleCompareLevel(point_shadow_map, point_shadow_smp, normalize(to_frag), depth_ref - 0.002);
}
`)
		}
	}
}

// writeLitFragment emits fs_main for the full PBR path.
func writeLitFragment(b *strings.Builder, key VariantKey) {
	b.WriteString(`
@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    var base = material_u.base_color;
`)
	if key.Features&material.FeatureBaseColorTexture != 0 {
		b.WriteString(`    base = base * textureSample(base_color_tex, base_color_smp, in.uv);
`)
	}
	if key.Attributes&model.AttrColor != 0 {
		b.WriteString(`    base = base * in.color;
`)
	}
	if key.Features&material.FeatureAlphaMask != 0 {
		b.WriteString(`    if (base.a < material_u.alpha_cutoff) {
        discard;
    }
`)
	}

	b.WriteString(`
    var metallic = material_u.metallic;
    var roughness = material_u.roughness;
`)
	if key.Features&material.FeatureMetallicRoughnessTexture != 0 {
		b.WriteString(`    let mr = textureSample(mr_tex, mr_smp, in.uv);
    metallic = metallic * mr.b;
    roughness = roughness * mr.g;
`)
	}
	b.WriteString(`    roughness = clamp(roughness, 0.04, 1.0);

    var n = normalize(in.world_normal);
`)
	if key.Features&material.FeatureNormalTexture != 0 {
		b.WriteString(`    let t = normalize(in.world_tangent.xyz);
    let bt = cross(n, t) * in.world_tangent.w;
    let tbn = mat3x3<f32>(t, bt, n);
    var nm = textureSample(normal_tex, normal_smp, in.uv).xyz * 2.0 - vec3<f32>(1.0);
    nm = vec3<f32>(nm.xy * material_u.normal_scale, nm.z);
    n = normalize(tbn * nm);
`)
	}

	b.WriteString(`
    var occlusion: f32 = 1.0;
`)
	if key.Features&material.FeatureOcclusionTexture != 0 {
		b.WriteString(`    let ao = textureSample(occlusion_tex, occlusion_smp, in.uv).r;
    occlusion = 1.0 + material_u.occlusion * (ao - 1.0);
`)
	}

	b.WriteString(`
    var emissive = material_u.emissive;
`)
	if key.Features&material.FeatureEmissiveTexture != 0 {
		b.WriteString(`    emissive = emissive * textureSample(emissive_tex, emissive_smp, in.uv).rgb;
`)
	}

	b.WriteString(`
    let albedo = base.rgb;
    let v = normalize(camera.camera_pos - in.world_pos);
    let f0 = mix(vec3<f32>(0.04), albedo, metallic);
    let n_dot_v = max(dot(n, v), 0.0001);

    var radiance = vec3<f32>(0.0);
    for (var i: u32 = 0u; i < light_buf.header.count; i = i + 1u) {
        let lgt = light_buf.lights[i];

        var l = -lgt.direction;
        var attenuation: f32 = 1.0;
        if (lgt.light_type != 0u) {
            let to_light = lgt.position - in.world_pos;
            let dist = length(to_light);
            if (dist > lgt.light_range) {
                continue;
            }
            l = to_light / max(dist, 0.0001);
            let falloff = clamp(1.0 - pow(dist / lgt.light_range, 4.0), 0.0, 1.0);
            attenuation = (falloff * falloff) / max(dist * dist, 0.0001);
        }
        if (lgt.light_type == 2u) {
            let cone = dot(-l, lgt.direction);
            attenuation = attenuation * clamp((cone - lgt.outer_cone) / max(lgt.inner_cone - lgt.outer_cone, 0.0001), 0.0, 1.0);
        }

        let n_dot_l = max(dot(n, l), 0.0);
        if (n_dot_l <= 0.0 || attenuation <= 0.0) {
            continue;
        }
`)

	if key.ShadowCasters > 0 {
		fmt.Fprintf(b, `
        var shadow: f32 = 1.0;
        if (lgt.shadow_slot < %du) {
`, key.ShadowCasters)
		if key.PointShadows {
			b.WriteString(`            if (lgt.light_type == 1u) {
                shadow = point_shadow_factor(lgt.position, lgt.light_range, in.world_pos);
            } else {
                shadow = shadow_factor(lgt.shadow_slot, in.world_pos, n);
            }
`)
		} else {
			b.WriteString(`            if (lgt.light_type != 1u) {
                shadow = shadow_factor(lgt.shadow_slot, in.world_pos, n);
            }
`)
		}
		b.WriteString(`        }
`)
	} else {
		b.WriteString(`
        let shadow: f32 = 1.0;
`)
	}

	b.WriteString(`
        let h = normalize(v + l);
        let n_dot_h = max(dot(n, h), 0.0);
        let ndf = distribution_ggx(n_dot_h, roughness);
        let g = geometry_smith(n_dot_v, n_dot_l, roughness);
        let f = fresnel_schlick(max(dot(h, v), 0.0), f0);
        let specular = (ndf * g * f) / max(4.0 * n_dot_v * n_dot_l, 0.0001);
        let kd = (vec3<f32>(1.0) - f) * (1.0 - metallic);
        let contrib = (kd * albedo / PI + specular) * lgt.color * lgt.intensity * attenuation * n_dot_l;
        radiance = radiance + contrib * shadow;
    }

    let ambient = light_buf.header.ambient * albedo * occlusion;
    let color = ambient + radiance + emissive;
    return vec4<f32>(color, base.a);
}
`)
}

// writeUnlitFragment emits fs_main for the unlit debug path: base color,
// optional texture and vertex color, plus emissive.
func writeUnlitFragment(b *strings.Builder, key VariantKey) {
	b.WriteString(`
@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    var base = material_u.base_color;
`)
	if key.Features&material.FeatureBaseColorTexture != 0 {
		b.WriteString(`    base = base * textureSample(base_color_tex, base_color_smp, in.uv);
`)
	}
	if key.Attributes&model.AttrColor != 0 {
		b.WriteString(`    base = base * in.color;
`)
	}
	if key.Features&material.FeatureAlphaMask != 0 {
		b.WriteString(`    if (base.a < material_u.alpha_cutoff) {
        discard;
    }
`)
	}
	b.WriteString(`
    var emissive = material_u.emissive;
`)
	if key.Features&material.FeatureEmissiveTexture != 0 {
		b.WriteString(`    emissive = emissive * textureSample(emissive_tex, emissive_smp, in.uv).rgb;
`)
	}
	b.WriteString(`    return vec4<f32>(base.rgb + emissive, base.a);
}
`)
}
