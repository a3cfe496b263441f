// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package typesystem

import (
	"strings"

	pe "github.com/saferwall/clrts"
)

// memberReader translates methods, fields, properties, events, parameters,
// and type parameters into unresolved members (§4.4).
type memberReader struct {
	opts Options
	pool pool
	src  *source
	refs *referenceBuilder
	attr *attributeReader

	// ownerDefaultMemberName is the owning type's DefaultMemberAttribute
	// string argument (if any), set once per readMembers call and
	// consulted by the indexer heuristic in readProperty (§4.4).
	ownerDefaultMemberName string
}

func newMemberReader(opts Options, p pool, src *source) *memberReader {
	return &memberReader{
		opts: opts,
		pool: p,
		src:  src,
		refs: newReferenceBuilder(opts, p, src),
		attr: newAttributeReader(opts, p, src),
	}
}

func methodAccessibility(flags uint16) Accessibility {
	switch flags & mdMemberAccessMask {
	case mdPrivate:
		return Private
	case mdFamANDAssem:
		return PrivateProtected
	case mdAssem:
		return Internal
	case mdFamily:
		return Protected
	case mdFamORAssem:
		return ProtectedInternal
	case mdPublic:
		return Public
	default:
		return Private
	}
}

func fieldAccessibility(flags uint16) Accessibility {
	switch flags & fdFieldAccessMask {
	case fdPrivate:
		return Private
	case fdFamANDAssem:
		return PrivateProtected
	case fdAssembly:
		return Internal
	case fdFamily:
		return Protected
	case fdFamORAssem:
		return ProtectedInternal
	case fdPublic:
		return Public
	default:
		return Private
	}
}

func isVisible(acc Accessibility, includeInternal bool) bool {
	if includeInternal {
		return true
	}
	return acc == Public || acc == Protected || acc == ProtectedInternal
}

// deriveMethodModifiers applies the (abstract, final, virtual, newslot)
// table of §4.4.
func deriveMethodModifiers(isAbstractFlag, isFinal, isVirtualFlag, isNewSlot bool) (isAbstract, isSealed, isVirtual, isOverride bool) {
	switch {
	case isAbstractFlag && isNewSlot:
		isAbstract = true
	case isAbstractFlag && !isNewSlot:
		isAbstract, isOverride = true, true
	case !isAbstractFlag && isFinal && !isNewSlot:
		isSealed, isOverride = true, true
	case !isAbstractFlag && !isFinal && isVirtualFlag && isNewSlot:
		isVirtual = true
	case !isAbstractFlag && !isFinal && isVirtualFlag && !isNewSlot:
		isOverride = true
	}
	return
}

// readMembers builds every method, field, property, and event owned by the
// TypeDef at typeDefIndex, in the insertion order §3 requires. isInterface
// forces "public abstract" accessibility/modifiers per §4.4.
func (r *memberReader) readMembers(typeDefIndex uint32, owner *TypeDefinition, isInterface bool, defaultMemberName string) []*Member {
	r.ownerDefaultMemberName = defaultMemberName
	var members []*Member

	methodByRow := make(map[uint32]*Member)

	start, end := r.src.file.MethodRange(int(typeDefIndex))
	for row := start; row < end; row++ {
		if r.src.accessorMethods[row] {
			continue // accessor methods surface only via their property/event
		}
		m := r.readMethod(row, owner, isInterface)
		if m == nil {
			continue
		}
		methodByRow[row] = m
		members = append(members, m)
	}

	for _, propRow := range r.src.file.PropertiesOfType(int(typeDefIndex)) {
		p := r.readProperty(typeDefIndex, propRow, owner, isInterface)
		if p != nil {
			members = append(members, p)
		}
	}

	for _, evRow := range r.src.file.EventsOfType(int(typeDefIndex)) {
		e := r.readEvent(typeDefIndex, evRow, owner, isInterface)
		if e != nil {
			members = append(members, e)
		}
	}

	fStart, fEnd := r.src.file.FieldRange(int(typeDefIndex))
	for row := fStart; row < fEnd; row++ {
		f := r.readField(row, owner)
		if f != nil {
			members = append(members, f)
		}
	}

	return members
}

func (r *memberReader) readMethod(row uint32, owner *TypeDefinition, isInterface bool) *Member {
	m, ok := row2(r.src.methods, row)
	if !ok {
		return nil
	}
	acc := methodAccessibility(m.Flags)
	if isInterface {
		acc = Public
	}
	if !isVisible(acc, r.opts.IncludeInternalMembers) {
		return nil
	}

	name := internStr(r.pool, r.src, m.Name)

	sig, err := r.src.file.DecodeMethodSignature(m.Signature)
	if err != nil {
		sig = pe.MethodSignature{}
	}

	decoded := r.attr.readCustomAttributes(pe.MethodDef, row)
	security := r.attr.readSecurityDeclarations(pe.MethodDef, row)
	attrs := decoded.Attributes

	implFlags := m.ImplFlags
	var preserveSigAbsorbed bool
	if im, ok := r.src.implMapOf(row); ok {
		moduleName := ""
		if mr, ok := row2(r.src.moduleRefs, im.ImportScope); ok {
			moduleName = internStr(r.pool, r.src, mr.Name)
		}
		importName := internStr(r.pool, r.src, im.ImportName)
		dllImport, absorbed := synthDllImport(name, importName, im, moduleName, implFlags)
		attrs = append(attrs, dllImport)
		preserveSigAbsorbed = absorbed
	}
	residualImpl := implFlags // PreserveSig is the only bit we special-case
	if !preserveSigAbsorbed && residualImpl&miPreserveSig != 0 {
		attrs = append(attrs, synthPreserveSig())
		residualImpl &^= miPreserveSig
	} else if preserveSigAbsorbed {
		residualImpl &^= miPreserveSig
	}
	if ma := synthMethodImpl(residualImpl); ma != nil {
		attrs = append(attrs, ma)
	}
	attrs = append(attrs, security...)

	isAbstractFlag := m.Flags&mdAbstract != 0
	isFinal := m.Flags&mdFinal != 0
	isVirtualFlag := m.Flags&mdVirtual != 0
	isNewSlot := m.Flags&mdNewSlot != 0
	isAbstract, isSealed, isVirtual, isOverride := deriveMethodModifiers(isAbstractFlag, isFinal, isVirtualFlag, isNewSlot)
	if isInterface {
		isAbstract = true
	}

	isStatic := m.Flags&mdStatic != 0
	isExtension := isStatic && decoded.HasExtension
	if isExtension {
		owner.HasExtensionMethods = true
	}

	shortName := name
	var explicitImpls []*TypeReference
	isExplicit := false
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 && !isStatic {
		if impls := r.explicitInterfaceImpls(owner, row); len(impls) > 0 {
			isExplicit = true
			explicitImpls = impls
			if r.opts.ShortenInterfaceImplNames {
				shortName = name[idx+1:]
			}
		}
	}

	typeParams := r.readTypeParams(pe.MethodDef, row)

	info := dynamicTupleInfo{DynamicFlags: decoded.DynamicFlags, TupleNames: decoded.TupleNames}
	retType := r.refs.Build(sig.RetType.Type, info, true)

	params := make([]*Parameter, 0, len(sig.Params))
	pStart, pEnd := r.src.file.ParamRange(int(row))
	paramRows := make([]pe.ParamTableRow, 0, pEnd-pStart)
	for pr := pStart; pr < pEnd; pr++ {
		if prow, ok := row2(r.src.params, pr); ok {
			paramRows = append(paramRows, prow)
		}
	}
	for i, ps := range sig.Params {
		var prow pe.ParamTableRow
		var prowIdx uint32
		if i < len(paramRows) && paramRows[i].Sequence == uint16(i+1) {
			prow = paramRows[i]
			prowIdx = pStart + uint32(i)
		}
		params = append(params, r.readParameter(ps, prow, prowIdx, info))
	}
	if sig.IsVarArg {
		params = append(params, &Parameter{Name: "", Type: ArgList})
	}

	return &Member{
		Kind:                    MemberMethod,
		Name:                    shortName,
		DeclaringType:           owner,
		ReturnType:              retType,
		Accessibility:           acc,
		Token:                   row,
		Attributes:              attrs,
		IsStatic:                isStatic,
		IsAbstract:              isAbstract,
		IsSealed:                isSealed,
		IsVirtual:               isVirtual,
		IsOverride:              isOverride,
		TypeParameters:          typeParams,
		Parameters:              params,
		IsExtensionMethod:       isExtension,
		ExplicitInterfaceImpls:  explicitImpls,
		IsExplicitInterfaceImpl: isExplicit,
		HasVarArgs:              sig.IsVarArg,
	}
}

// explicitInterfaceImpls resolves the MethodImpl rows (owned by the
// enclosing type) whose MethodBody names methodRow, returning the
// interface method references they implement (§4.4).
func (r *memberReader) explicitInterfaceImpls(owner *TypeDefinition, methodRow uint32) []*TypeReference {
	var out []*TypeReference
	for _, mi := range r.src.methodImplsByClass[owner.Token] {
		table, bodyRow := pe.DecodeMethodDefOrRef(mi.MethodBody)
		if table != pe.MethodDef || bodyRow != methodRow {
			continue
		}
		declTable, declRow := pe.DecodeMethodDefOrRef(mi.MethodDeclaration)
		switch declTable {
		case pe.MemberRef:
			if mr, ok := row2(r.src.memberRefs, declRow); ok {
				parentTable, parentRow := pe.DecodeMemberRefParent(mr.Class)
				out = append(out, r.refs.buildTokenRef(pe.TypeToken{Table: parentTable, Index: parentRow}, false, true))
			}
		case pe.MethodDef:
			if td, ok := r.src.owningTypeDefOfMethod(declRow); ok {
				out = append(out, &TypeReference{Kind: RefToken, Token: td})
			}
		}
	}
	return out
}

func (r *memberReader) readParameter(ps pe.ParamSignature, prow pe.ParamTableRow, prowIdx uint32, info dynamicTupleInfo) *Parameter {
	typ := r.refs.Build(ps.Type, info, true)
	isByRef := ps.ByRef

	p := &Parameter{
		Name: internStr(r.pool, r.src, prow.Name),
		Type: typ,
	}

	if isByRef {
		if prow.Flags&pdOut != 0 {
			p.IsOut = true
		} else {
			p.IsRef = true
		}
	} else {
		p.IsIn = prow.Flags&pdIn != 0
	}

	decoded := r.attr.readCustomAttributes(pe.Param, prowIdx)
	// Params array iff the parameter type is an array and it carries
	// ParamArrayAttribute (§4.4); ParamArrayAttribute itself is filtered
	// from the emitted attribute list (§4.3), so its presence is signaled
	// through decoded.HasParamArray instead.
	p.IsParams = typ.Kind == RefArray && decoded.HasParamArray
	p.Attributes = decoded.Attributes

	if prowIdx != 0 && prow.Flags&pdHasDefault != 0 {
		if c, ok := r.src.constantOf(pe.Param, prowIdx); ok {
			if v, ok := decodeConstantBlob(c.Type, r.src.blob(c.Value)); ok {
				p.HasDefault = true
				p.Default = r.pool.internConst(constKey(typ, v), &ConstantValue{Type: typ, Value: v})
			}
		}
	}

	return p
}

func (r *memberReader) readTypeParams(ownerTable int, ownerRow uint32) []*TypeParameter {
	key, ok := pe.EncodeTypeOrMethodDef(ownerTable, ownerRow)
	if !ok {
		return nil
	}
	gps := r.src.genericParamsByOwner[key]
	out := make([]*TypeParameter, 0, len(gps))
	for i, gp := range gps {
		tp := &TypeParameter{
			Name:     internStr(r.pool, r.src, gp.Name),
			Position: i,
		}
		tp.Variance = int(gp.Flags & gpVarianceMask)
		tp.ReferenceTypeConstraint = gp.Flags&gpReferenceTypeConstraint != 0
		tp.NotNullableValueTypeConstraint = gp.Flags&gpNotNullableValueTypeConstraint != 0
		tp.DefaultConstructorConstraint = gp.Flags&gpDefaultConstructorConstraint != 0

		gpRowIdx := r.genericParamRowIndex(gp)
		for _, c := range r.src.genericParamConstraintsBy[gpRowIdx] {
			table, row := pe.DecodeTypeDefOrRef(c.Constraint)
			tp.Constraints = append(tp.Constraints, r.refs.buildTokenRef(pe.TypeToken{Table: table, Index: row}, false, true))
		}
		tp.Attributes = r.attr.readCustomAttributes(pe.GenericParam, gpRowIdx).Attributes
		out = append(out, tp)
	}
	return out
}

// genericParamRowIndex finds gp's own 1-based row index in the GenericParam
// table, needed to look up its constraints and attributes (both keyed by
// that row, not by owner).
func (r *memberReader) genericParamRowIndex(gp pe.GenericParamTableRow) uint32 {
	for i, row := range r.src.genericParams {
		if row == gp {
			return uint32(i + 1)
		}
	}
	return 0
}

func (r *memberReader) readField(row uint32, owner *TypeDefinition) *Member {
	f, ok := row2(r.src.fields, row)
	if !ok {
		return nil
	}
	acc := fieldAccessibility(f.Flags)
	if !isVisible(acc, r.opts.IncludeInternalMembers) {
		return nil
	}

	name := internStr(r.pool, r.src, f.Name)
	sigType, err := r.src.file.DecodeFieldSignature(f.Signature)
	if err != nil {
		sigType = pe.SignatureType{}
	}

	decoded := r.attr.readCustomAttributes(pe.Field, row)
	attrs := decoded.Attributes

	if f.Flags&fdNotSerialized != 0 {
		attrs = append(attrs, synthNonSerialized())
	}
	if fl, ok := r.src.fieldLayoutByField[row]; ok {
		attrs = append(attrs, synthFieldOffset(fl.Offset))
	}
	if fm, ok := r.src.fieldMarshalOf(pe.Field, row); ok {
		if ma := synthMarshalAs(r.src.blob(fm.NativeType)); ma != nil {
			attrs = append(attrs, ma)
		}
	}

	info := dynamicTupleInfo{DynamicFlags: decoded.DynamicFlags, TupleNames: decoded.TupleNames}
	typ := r.refs.Build(sigType, info, true)

	isVolatile := false
	for _, mod := range sigType.Mods {
		if mod.Required && r.isVolatileModType(mod.Type) {
			isVolatile = true
		}
	}

	var constant *ConstantValue
	if decoded.HasDecimalConstant {
		constant = r.pool.internConst(constKey(typ, decoded.DecimalConstant), &ConstantValue{Type: typ, Value: decoded.DecimalConstant})
	} else if f.Flags&fdHasDefault != 0 {
		if c, ok := r.src.constantOf(pe.Field, row); ok {
			if v, ok := decodeConstantBlob(c.Type, r.src.blob(c.Value)); ok {
				constant = r.pool.internConst(constKey(typ, v), &ConstantValue{Type: typ, Value: v})
			}
		}
	}

	return &Member{
		Kind:          MemberField,
		Name:          name,
		DeclaringType: owner,
		ReturnType:    typ,
		Accessibility: acc,
		Token:         row,
		Attributes:    attrs,
		IsStatic:      f.Flags&fdStatic != 0,
		IsReadOnly:    f.Flags&fdInitOnly != 0,
		IsVolatile:    isVolatile,
		Constant:      constant,
	}
}

func (r *memberReader) isVolatileModType(tok pe.TypeToken) bool {
	ref := r.refs.buildTokenRef(tok, false, false)
	return ref.Kind == RefNamed && ref.Namespace == "System.Runtime.CompilerServices" && ref.Name == "IsVolatile"
}

// accessorAccessibility/Modifiers implements the property/event promotion
// rule of §4.4: the union of the visible accessors, most permissive wins,
// with FamANDAssem∪FamORAssem promoting to ProtectedInternal per the
// standard C# accessibility-domain lattice.
func unionAccessibility(accessors ...Accessibility) Accessibility {
	best := Private
	set := false
	for _, a := range accessors {
		if !set {
			best = a
			set = true
			continue
		}
		best = promote(best, a)
	}
	return best
}

func (r *memberReader) readProperty(typeDefIndex, row uint32, owner *TypeDefinition, isInterface bool) *Member {
	p, ok := row2(r.src.properties, row)
	if !ok {
		return nil
	}
	name := internStr(r.pool, r.src, p.Name)

	var getter, setter *Member
	for _, ms := range r.src.methodSemanticsOf(pe.Property, row) {
		m := r.readMethod(ms.Method, owner, isInterface)
		if m == nil {
			continue
		}
		switch ms.Semantics {
		case msGetter:
			getter = m
		case msSetter:
			setter = m
		}
	}
	if getter == nil && setter == nil {
		return nil
	}

	var acc Accessibility
	visible := false
	if getter != nil && isVisible(getter.Accessibility, r.opts.IncludeInternalMembers) {
		visible = true
	}
	if setter != nil && isVisible(setter.Accessibility, r.opts.IncludeInternalMembers) {
		visible = true
	}
	if !visible {
		return nil
	}
	if getter != nil && setter != nil {
		acc = unionAccessibility(getter.Accessibility, setter.Accessibility)
	} else if getter != nil {
		acc = getter.Accessibility
	} else {
		acc = setter.Accessibility
	}

	var modFrom *Member
	if getter != nil {
		modFrom = getter
	} else {
		modFrom = setter
	}

	sig, err := r.src.file.DecodePropertySignature(p.Type)
	if err != nil {
		sig = pe.MethodSignature{}
	}

	decoded := r.attr.readCustomAttributes(pe.Property, row)
	attrs := decoded.Attributes

	info := dynamicTupleInfo{DynamicFlags: decoded.DynamicFlags, TupleNames: decoded.TupleNames}
	retType := r.refs.Build(sig.RetType.Type, info, true)

	var indexParams []*Parameter
	for _, ps := range sig.Params {
		indexParams = append(indexParams, &Parameter{Type: r.refs.Build(ps.Type, info, true)})
	}

	isIndexer := len(indexParams) > 0 && (name == r.ownerDefaultMemberName || (strings.HasSuffix(name, ".Item") && modFrom.IsExplicitInterfaceImpl))

	var explicitImpls []*TypeReference
	isExplicit := false
	if getter != nil && getter.IsExplicitInterfaceImpl {
		explicitImpls, isExplicit = getter.ExplicitInterfaceImpls, true
	} else if setter != nil && setter.IsExplicitInterfaceImpl {
		explicitImpls, isExplicit = setter.ExplicitInterfaceImpls, true
	}

	return &Member{
		Kind:                    MemberProperty,
		Name:                    name,
		DeclaringType:           owner,
		ReturnType:              retType,
		Accessibility:           acc,
		Token:                   row,
		Attributes:              attrs,
		IsStatic:                modFrom.IsStatic,
		IsAbstract:              modFrom.IsAbstract,
		IsSealed:                modFrom.IsSealed,
		IsVirtual:               modFrom.IsVirtual,
		IsOverride:              modFrom.IsOverride,
		Getter:                  getter,
		Setter:                  setter,
		IsIndexer:               isIndexer,
		IndexerParameters:       indexParams,
		ExplicitInterfaceImpls:  explicitImpls,
		IsExplicitInterfaceImpl: isExplicit,
	}
}

func (r *memberReader) readEvent(typeDefIndex, row uint32, owner *TypeDefinition, isInterface bool) *Member {
	e, ok := row2(r.src.events, row)
	if !ok {
		return nil
	}
	name := internStr(r.pool, r.src, e.Name)

	var add, remove, fire *Member
	for _, ms := range r.src.methodSemanticsOf(pe.Event, row) {
		m := r.readMethod(ms.Method, owner, isInterface)
		if m == nil {
			continue
		}
		switch ms.Semantics {
		case msAddOn:
			add = m
		case msRemoveOn:
			remove = m
		case msFire:
			fire = m
		}
	}
	if add == nil {
		return nil
	}
	if !isVisible(add.Accessibility, r.opts.IncludeInternalMembers) {
		return nil
	}

	decoded := r.attr.readCustomAttributes(pe.Event, row)
	table, tok := pe.DecodeTypeDefOrRef(e.EventType)
	evType := r.refs.buildTokenRef(pe.TypeToken{Table: table, Index: tok}, false, true)

	var explicitImpls []*TypeReference
	isExplicit := false
	if add.IsExplicitInterfaceImpl {
		explicitImpls, isExplicit = add.ExplicitInterfaceImpls, true
	}

	return &Member{
		Kind:                    MemberEvent,
		Name:                    name,
		DeclaringType:           owner,
		ReturnType:              evType,
		Accessibility:           add.Accessibility,
		Token:                   row,
		Attributes:              decoded.Attributes,
		IsStatic:                add.IsStatic,
		IsAbstract:              add.IsAbstract,
		IsSealed:                add.IsSealed,
		IsVirtual:               add.IsVirtual,
		IsOverride:              add.IsOverride,
		AddAccessor:             add,
		RemoveAccessor:          remove,
		InvokeAccessor:          fire,
		ExplicitInterfaceImpls:  explicitImpls,
		IsExplicitInterfaceImpl: isExplicit,
	}
}

// row2 is row() specialized so member.go doesn't repeat the type param at
// every call site; identical semantics.
func row2[T any](rows []T, idx uint32) (T, bool) {
	return row(rows, idx)
}
